// Package tesseract is the Tesseract-backed recognizer. It needs libtesseract
// at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs Tesseract over image files
type Recognizer struct {
	Languages []string
}

// New recognizer for the given languages (e.g. "eng", "rus")
func New(languages []string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{"eng", "rus"}
	}
	return &Recognizer{Languages: languages}
}

// Recognize implements ocr.Recognizer. gosseract clients are not shared
// across goroutines, so each call gets its own.
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}
