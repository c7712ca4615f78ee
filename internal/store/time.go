package store

import "time"

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
