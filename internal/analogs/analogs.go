package analogs

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/ggorockee/partfinder/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed analogs.yaml
var builtinTable []byte

// Resolver static cross-reference table. Read-only after construction.
type Resolver struct {
	table map[string][]string
}

// New resolver over the built-in table
func New() *Resolver {
	r, err := parse(builtinTable)
	if err != nil {
		panic(fmt.Sprintf("analogs: built-in table: %v", err))
	}
	return r
}

// Load reads a table from r
func Load(r io.Reader) (*Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read analogs table: %w", err)
	}
	return parse(data)
}

// LoadFile reads a table from path; an empty path yields the built-in table
func LoadFile(path string) (*Resolver, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open analogs table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parse(data []byte) (*Resolver, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse analogs table: %w", err)
	}

	table := make(map[string][]string, len(raw))
	for id, refs := range raw {
		table[models.NormalizeQuery(id)] = refs
	}
	return &Resolver{table: table}, nil
}

// Resolve returns the cross-references of partNumber. Matching is exact
// after uppercasing; unknown identifiers yield an empty slice.
func (r *Resolver) Resolve(partNumber string) []string {
	refs, ok := r.table[models.NormalizeQuery(partNumber)]
	if !ok {
		return []string{}
	}
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

// Len number of known identifiers
func (r *Resolver) Len() int {
	return len(r.table)
}
