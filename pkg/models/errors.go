package models

import "errors"

// Pipeline error classes. Components wrap these so callers can classify
// failures with errors.Is before degrading to an empty result.
var (
	ErrImageDecode = errors.New("image decode failed")
	ErrRecognition = errors.New("text recognition failed")
	ErrNetwork     = errors.New("catalog request failed")
	ErrParse       = errors.New("catalog page parse failed")
	ErrCacheIO     = errors.New("cache io failed")
)

// ErrorClass returns a short metric label for err.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrImageDecode):
		return "image_decode"
	case errors.Is(err, ErrRecognition):
		return "recognition"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrCacheIO):
		return "cache_io"
	default:
		return "unknown"
	}
}
