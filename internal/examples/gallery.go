package examples

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/codescanai/codescan/internal/models"
)

//go:embed gallery.toml
var galleryTOML string

// Example is one demo snippet from the gallery.
type Example struct {
	ID          string `toml:"id" json:"id"`
	Title       string `toml:"title" json:"title"`
	Language    string `toml:"language" json:"language"`
	Description string `toml:"description" json:"description"`
	Code        string `toml:"code" json:"code"`
}

// Gallery is the loaded, validated example set. Order follows the TOML
// file and is what listing endpoints return.
type Gallery struct {
	list []Example
	byID map[string]Example
}

type galleryFile struct {
	Examples []Example `toml:"examples"`
}

// Load parses the embedded gallery. It fails on duplicate or empty ids so
// a bad edit is caught at startup, not at request time.
func Load() (*Gallery, error) {
	var file galleryFile
	if _, err := toml.Decode(galleryTOML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse example gallery: %w", err)
	}

	g := &Gallery{
		list: file.Examples,
		byID: make(map[string]Example, len(file.Examples)),
	}
	for _, ex := range file.Examples {
		if ex.ID == "" {
			return nil, fmt.Errorf("example %q has no id", ex.Title)
		}
		if _, dup := g.byID[ex.ID]; dup {
			return nil, fmt.Errorf("duplicate example id %q", ex.ID)
		}
		g.byID[ex.ID] = ex
	}
	return g, nil
}

// List returns all examples in gallery order.
func (g *Gallery) List() []Example {
	out := make([]Example, len(g.list))
	copy(out, g.list)
	return out
}

// Get returns the example with the given id.
func (g *Gallery) Get(id string) (Example, error) {
	ex, ok := g.byID[id]
	if !ok {
		return Example{}, models.ErrExampleNotFound
	}
	return ex, nil
}
