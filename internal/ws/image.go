package ws

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/digitalbuzz/buzzchat/internal/chat"
)

// defaultMaxImageBytes bounds the decoded size of an image blob. The
// client-side pipeline resizes before upload, so anything larger than
// this slipped past it.
const defaultMaxImageBytes = 1 << 20

// validateImage checks that an image payload is a well-formed base64
// data URI whose decoded size is within maxBytes. The blob itself is
// opaque to the core; resizing and re-encoding happen before submission.
func validateImage(dataURI string, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}

	if !strings.HasPrefix(dataURI, "data:") {
		return fmt.Errorf("missing data URI prefix: %w", chat.ErrImageProcessing)
	}
	header, encoded, ok := strings.Cut(dataURI, ",")
	if !ok {
		return fmt.Errorf("malformed data URI: %w", chat.ErrImageProcessing)
	}
	if !strings.HasSuffix(header, ";base64") {
		return fmt.Errorf("data URI is not base64 encoded: %w", chat.ErrImageProcessing)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode image: %v: %w", err, chat.ErrImageProcessing)
	}
	if len(decoded) == 0 {
		return fmt.Errorf("empty image: %w", chat.ErrImageProcessing)
	}
	if len(decoded) > maxBytes {
		return fmt.Errorf("image of %d bytes exceeds limit of %d: %w", len(decoded), maxBytes, chat.ErrImageProcessing)
	}
	return nil
}
