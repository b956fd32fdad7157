package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/telemetry"
	"github.com/ggorockee/partfinder/pkg/models"
)

// DefaultMinTokenLength shortest token accepted as a part identifier
const DefaultMinTokenLength = 5

// Recognizer runs text recognition over an image file
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Candidate possible part identifier with a heuristic confidence in [0, 1]
type Candidate struct {
	Text       string
	Confidence float64
}

// Candidates returns the alphanumeric tokens of text at least minLen long,
// ranked by confidence. Ties keep their order in text.
func Candidates(text string, minLen int) []Candidate {
	tokens := tokens(text, minLen)
	out := make([]Candidate, len(tokens))
	for i, tok := range tokens {
		out[i] = Candidate{Text: tok, Confidence: confidence(tok)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Extract returns the first qualifying token of text in reading order
func Extract(text string, minLen int) (string, bool) {
	tokens := tokens(text, minLen)
	if len(tokens) == 0 {
		return "", false
	}
	return tokens[0], true
}

func tokens(text string, minLen int) []string {
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}
	var out []string
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) >= minLen && isAlnum(w) {
			out = append(out, w)
		}
	}
	return out
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// confidence favors mixed letter/digit codes of typical catalog length
func confidence(tok string) float64 {
	var letters, digits int
	for _, r := range tok {
		if unicode.IsDigit(r) {
			digits++
		} else {
			letters++
		}
	}

	c := 0.4
	switch {
	case letters > 0 && digits > 0:
		c += 0.3
	case digits > 0:
		c += 0.2
	}
	if n := letters + digits; n >= 6 && n <= 14 {
		c += 0.2
	}
	if strings.ToUpper(tok) == tok {
		c += 0.1
	}
	if c > 1 {
		c = 1
	}
	return c
}

// Extractor finds part identifiers in photos
type Extractor struct {
	pre       *Preprocessor
	rec       Recognizer
	minLen    int
	telemetry *telemetry.Telemetry
}

// NewExtractor creates an extractor. tel may be nil.
func NewExtractor(pre *Preprocessor, rec Recognizer, minLen int, tel *telemetry.Telemetry) *Extractor {
	if pre == nil {
		pre = &Preprocessor{}
	}
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}
	return &Extractor{pre: pre, rec: rec, minLen: minLen, telemetry: tel}
}

// CandidatesFromImage ranked identifier candidates found in the photo at path.
// Decode and recognition failures are logged and yield no candidates.
func (e *Extractor) CandidatesFromImage(ctx context.Context, path string) []Candidate {
	log := logger.GetLogger("ocr")

	text, err := e.recognize(ctx, path)
	cands := []Candidate{}
	if err != nil {
		log.Warnf("OCR error: %v", err)
	} else {
		cands = Candidates(text, e.minLen)
	}

	if e.telemetry != nil {
		e.telemetry.RecordOCR(ctx, len(cands) > 0, models.ErrorClass(err))
	}
	return cands
}

// ExtractFromImage first identifier in reading order found in the photo at path
func (e *Extractor) ExtractFromImage(ctx context.Context, path string) (string, bool) {
	log := logger.GetLogger("ocr")

	text, err := e.recognize(ctx, path)
	var (
		id string
		ok bool
	)
	if err != nil {
		log.Warnf("OCR error: %v", err)
	} else {
		id, ok = Extract(text, e.minLen)
	}

	if e.telemetry != nil {
		e.telemetry.RecordOCR(ctx, ok, models.ErrorClass(err))
	}
	if ok {
		log.Infof("Recognized part identifier %s", id)
	}
	return id, ok
}

func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	cleaned, release, err := e.pre.Clean(path)
	if err != nil {
		return "", err
	}
	defer release()

	text, err := e.rec.Recognize(ctx, cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRecognition, err)
	}
	return text, nil
}
