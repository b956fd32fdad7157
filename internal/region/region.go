package region

import (
	"sort"
	"strings"
	"unicode"
)

// tailLength number of trailing characters inspected for a region code
const tailLength = 4

// codes region code -> city
var codes = map[string]string{
	"77":  "Москва",
	"99":  "Москва",
	"177": "Москва",
	"78":  "Санкт-Петербург",
	"98":  "Санкт-Петербург",
	"178": "Санкт-Петербург",
	"54":  "Новосибирск",
	"154": "Новосибирск",
}

type code struct {
	prefix string
	city   string
}

// Detector maps a plate-like suffix to a city
type Detector struct {
	// ordered longest prefix first, then lexicographically
	table []code
}

// New detector over the built-in region table
func New() *Detector {
	return NewWithTable(codes)
}

// NewWithTable detector over a custom prefix -> city table
func NewWithTable(t map[string]string) *Detector {
	table := make([]code, 0, len(t))
	for p, c := range t {
		table = append(table, code{prefix: p, city: c})
	}
	sort.Slice(table, func(i, j int) bool {
		if len(table[i].prefix) != len(table[j].prefix) {
			return len(table[i].prefix) > len(table[j].prefix)
		}
		return table[i].prefix < table[j].prefix
	})
	return &Detector{table: table}
}

// Detect returns the city whose region code prefixes the digits of the
// last four characters of text.
func (d *Detector) Detect(text string) (string, bool) {
	digits := tailDigits(strings.TrimSpace(text))
	if digits == "" {
		return "", false
	}
	for _, c := range d.table {
		if strings.HasPrefix(digits, c.prefix) {
			return c.city, true
		}
	}
	return "", false
}

func tailDigits(text string) string {
	runes := []rune(text)
	if len(runes) > tailLength {
		runes = runes[len(runes)-tailLength:]
	}
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
