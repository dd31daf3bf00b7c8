// Package manifest loads the sample manifest: the ordered list of samples a
// run aligns and genotypes.
//
// A manifest is an HCL file holding one `sample` block per input:
//
//	sample "NA12878" {
//	  reads     = "${env.DATA_DIR}/NA12878.bam"
//	  index     = "${env.DATA_DIR}/NA12878.bam.bai"
//	  alignment = "prealigned/NA12878.json" # optional, marks the sample pre-aligned
//	}
//
// Attribute values are HCL expressions evaluated against an `env` object
// exposing the process environment, so manifests can be shared between
// machines that keep their data under different roots.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/grmgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// hclManifestFile represents the top-level structure of a manifest file for decoding.
type hclManifestFile struct {
	Samples []*hclSample `hcl:"sample,block"`
}

// hclSample is the raw decoded form of a single `sample` block.
type hclSample struct {
	Name      string  `hcl:"name,label"`
	Reads     *string `hcl:"reads,optional"`
	Index     *string `hcl:"index,optional"`
	Alignment *string `hcl:"alignment,optional"`
}

// Load parses the manifest file at path and returns the ordered sample list.
// Sample order is preserved exactly as written; the alignment phase walks
// samples in this order.
func Load(ctx context.Context, path string) ([]*Sample, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading manifest.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}

	var root hclManifestFile
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}

	if len(root.Samples) == 0 {
		return nil, fmt.Errorf("manifest %s contains no sample blocks", path)
	}

	samples := make([]*Sample, 0, len(root.Samples))
	seen := make(map[string]struct{}, len(root.Samples))
	for _, raw := range root.Samples {
		if _, dup := seen[raw.Name]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate sample name %q", path, raw.Name)
		}
		seen[raw.Name] = struct{}{}

		sample, err := newSample(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: sample %q: %w", path, raw.Name, err)
		}
		samples = append(samples, sample)
	}

	logger.Debug("Manifest loaded.", "samples", len(samples))
	return samples, nil
}

// newSample validates one decoded block and resolves its pre-alignment
// payload, if any.
func newSample(raw *hclSample) (*Sample, error) {
	sample := &Sample{Name: raw.Name}
	if raw.Reads != nil {
		sample.ReadsPath = *raw.Reads
	}
	if raw.Index != nil {
		sample.IndexPath = *raw.Index
	}

	if raw.Alignment != nil && *raw.Alignment != "" {
		payload, err := os.ReadFile(*raw.Alignment)
		if err != nil {
			return nil, fmt.Errorf("reading alignment payload: %w", err)
		}
		if !json.Valid(payload) {
			return nil, fmt.Errorf("alignment payload %s is not valid JSON", *raw.Alignment)
		}
		sample.Alignment = payload
	}

	if sample.ReadsPath == "" && !sample.PreAligned() {
		return nil, fmt.Errorf("sample has neither reads nor a pre-computed alignment")
	}

	return sample, nil
}

// evalContext builds the HCL evaluation context for manifest expressions.
// Only the `env` object is exposed.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}
