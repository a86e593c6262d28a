// Package treespec loads YAML tree documents, validates them against an
// embedded CUE schema, and materializes them into resolver-ready trees.
//
// A document describes one host tree: nested named nodes, each optionally
// providing typed values (string, int, bool kinds), declaring needed
// kinds, and supplying per-kind default values. The CLI uses documents to
// exercise resolution end to end without a host application.
package treespec

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Doc is a decoded tree document.
type Doc struct {
	Root NodeSpec `yaml:"root"`
}

// NodeSpec is one node of a tree document.
type NodeSpec struct {
	Name     string         `yaml:"name"`
	Provides []ProvideSpec  `yaml:"provides"`
	Needs    []string       `yaml:"needs"`
	Defaults map[string]any `yaml:"defaults"`
	Children []NodeSpec     `yaml:"children"`
}

// ProvideSpec declares one provided value: a kind name and a concrete
// value of that kind.
type ProvideSpec struct {
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// Load parses and validates a tree document.
//
// Validation happens against the embedded CUE schema BEFORE decoding, so
// structural errors surface with the validator's position-annotated
// messages rather than as zero values downstream.
func Load(filename string, data []byte) (*Doc, error) {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, &DocError{Code: ErrCodeYAML, Message: err.Error()}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a bug.
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, &DocError{Code: ErrCodeYAML, Message: formatCUEError(err, filename)}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &DocError{Code: ErrCodeSchema, Message: formatCUEError(err, filename)}
	}

	var out Doc
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, &DocError{Code: ErrCodeYAML, Message: err.Error()}
	}
	return &out, nil
}

// formatCUEError flattens a CUE error list into one readable message,
// keeping file positions. Positions pointing into the document are
// preferred: a unify conflict's primary position sits in the schema,
// while the document position is among the input positions.
func formatCUEError(err error, filename string) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}

	var parts []string
	for _, e := range errs {
		pos := e.Position()
		for _, in := range e.InputPositions() {
			if in.IsValid() && in.Filename() == filename {
				pos = in
				break
			}
		}
		if pos.IsValid() {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), e.Error()))
		} else {
			parts = append(parts, e.Error())
		}
	}
	return strings.Join(parts, "; ")
}
