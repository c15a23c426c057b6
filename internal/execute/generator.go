package execute

import (
	"context"
	"fmt"
	"time"
)

// Source kinds accepted by the generator.
const (
	SrcJSON   = "json"
	SrcSchema = "schema"
)

// GenerateSpec describes one code-generator invocation. The target language
// is inferred by the tool from the output file extension.
type GenerateSpec struct {
	// SrcKind is the input flavor: SrcJSON or SrcSchema.
	SrcKind string

	// In is the input file path (absolute, or relative to Dir).
	In string

	// Out is the output artifact path, relative to Dir.
	Out string

	// Dir is the working directory for the invocation.
	Dir string
}

// Invoker abstracts the code generator so tests can substitute a fake.
type Invoker interface {
	Generate(ctx context.Context, spec GenerateSpec) (*Result, error)
}

// Generator invokes the external code-generation tool under test. The tool is
// opaque to the harness: any non-zero exit is a hard failure.
type Generator struct {
	Bin     string
	Timeout time.Duration
}

// NewGenerator returns a Generator for the given binary.
func NewGenerator(bin string) *Generator {
	return &Generator{Bin: bin}
}

// Generate runs the tool for one sample or schema input.
func (g *Generator) Generate(ctx context.Context, spec GenerateSpec) (*Result, error) {
	if spec.SrcKind != SrcJSON && spec.SrcKind != SrcSchema {
		return nil, fmt.Errorf("unknown source kind %q", spec.SrcKind)
	}
	cmd := Command{
		Bin:     g.Bin,
		Args:    []string{"--src-lang", spec.SrcKind, "-o", spec.Out, spec.In},
		Dir:     spec.Dir,
		Timeout: g.Timeout,
	}
	res, err := Run(ctx, cmd)
	if err != nil {
		return res, fmt.Errorf("code generation: %w", err)
	}
	return res, nil
}
