package ocr

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/segment"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/pkg/models"
)

// Preprocessor turns a photo into a binarized image for recognition
type Preprocessor struct {
	// TempDir holds intermediate images; empty means os.TempDir()
	TempDir string
}

// Clean writes a grayscale, Otsu-thresholded copy of the photo at src and
// returns its path. The caller must call release once recognition is done,
// on success and failure alike.
func (p *Preprocessor) Clean(src string) (path string, release func(), err error) {
	img, err := imgio.Open(src)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", models.ErrImageDecode, err)
	}

	binary := Binarize(img)

	f, err := os.CreateTemp(p.TempDir, "partfinder-cleaned-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("%w: create temp image: %v", models.ErrImageDecode, err)
	}
	path = f.Name()
	f.Close()

	release = func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.GetLogger("ocr").Warnf("Failed to remove temp image %s: %v", path, rmErr)
		}
	}

	if err := imgio.Save(path, binary, imgio.PNGEncoder()); err != nil {
		release()
		return "", nil, fmt.Errorf("%w: write cleaned image: %v", models.ErrImageDecode, err)
	}

	return path, release, nil
}

// Binarize converts img to grayscale and thresholds it at the Otsu level
func Binarize(img image.Image) *image.Gray {
	var gray image.Image = effect.Grayscale(img)
	return segment.Threshold(gray, OtsuLevel(gray))
}

// OtsuLevel threshold maximizing between-class variance of the luminance histogram
func OtsuLevel(img image.Image) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB      float64
		weightB   int
		best      float64
		threshold int
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			threshold = t
		}
	}

	// segment.Threshold keeps pixels >= level as white
	return uint8(threshold + 1)
}
