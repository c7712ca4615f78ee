package ws

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/digitalbuzz/buzzchat/internal/chat"
)

func pngDataURI(size int) string {
	blob := make([]byte, size)
	for i := range blob {
		blob[i] = byte(i)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(blob)
}

func TestValidateImageAccepts(t *testing.T) {
	if err := validateImage(pngDataURI(1024), 0); err != nil {
		t.Fatalf("expected valid image, got %v", err)
	}
}

func TestValidateImageRejects(t *testing.T) {
	cases := []struct {
		name    string
		dataURI string
		max     int
	}{
		{"no prefix", "image/png;base64,aGVsbG8=", 0},
		{"no comma", "data:image/png;base64", 0},
		{"not base64 marker", "data:image/png," + strings.Repeat("a", 16), 0},
		{"bad base64", "data:image/png;base64,!!!not-base64!!!", 0},
		{"empty blob", "data:image/png;base64,", 0},
		{"oversized", pngDataURI(2048), 1024},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateImage(tc.dataURI, tc.max)
			if !errors.Is(err, chat.ErrImageProcessing) {
				t.Fatalf("expected ErrImageProcessing, got %v", err)
			}
		})
	}
}
