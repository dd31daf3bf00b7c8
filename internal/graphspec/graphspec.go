// Package graphspec models the ordered list of graph description files a run
// genotypes. Each spec keeps its position in the input list as a stable
// index; that index is the claim key for both workflow phases and the key
// records are ordered by.
package graphspec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/grmgo/internal/ctxlog"
)

// Spec is one graph description file.
type Spec struct {
	// Index is the spec's stable position in the input list.
	Index int
	// Path is the location of the graph description JSON file.
	Path string
	// ID is the graph's self-declared identifier, when the file carries one.
	ID string
}

// FileName returns the spec's base file name. Folder-mode output files reuse
// it verbatim, mirroring the input name.
func (s Spec) FileName() string {
	return filepath.Base(s.Path)
}

// graphHeader is the subset of a graph description we parse eagerly. The
// genotyper consumes the full file itself.
type graphHeader struct {
	ID        string `json:"id"`
	ModelName string `json:"model_name"`
}

// Load reads every path, assigns indices in input order and returns the
// resulting list. Each file must exist and parse as JSON.
func Load(ctx context.Context, paths []string) ([]Spec, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph specs.", "count", len(paths))

	specs := make([]Spec, 0, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading graph spec %s: %w", path, err)
		}

		var header graphHeader
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, fmt.Errorf("graph spec %s is not valid JSON: %w", path, err)
		}

		id := header.ID
		if id == "" {
			id = header.ModelName
		}
		specs = append(specs, Spec{Index: i, Path: path, ID: id})
	}

	return specs, nil
}

// CheckUniqueFileNames verifies that no two specs would map to the same
// output file in folder mode.
func CheckUniqueFileNames(specs []Spec) error {
	seen := make(map[string]string, len(specs))
	for _, spec := range specs {
		name := spec.FileName()
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("graph specs %s and %s map to the same output file name %q", prev, spec.Path, name)
		}
		seen[name] = spec.Path
	}
	return nil
}
