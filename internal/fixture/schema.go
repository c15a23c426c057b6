package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"crosscheck/internal/compare"
	"crosscheck/internal/execute"
)

const (
	schemaArtifact  = "schema.json"
	schemaRederived = "schema-2.json"
	schemaProgram   = "main.go"
)

// SchemaValidator is the black-box JSON-schema validation predicate. The
// production implementation shells out; tests substitute fakes.
type SchemaValidator interface {
	// Validate asserts that the document at docPath conforms to the schema
	// at schemaPath. dir is the working directory for any external process.
	Validate(ctx context.Context, dir, schemaPath, docPath string) error
}

// execValidator validates via an external validator command.
type execValidator struct {
	bin string
}

func (v *execValidator) Validate(ctx context.Context, dir, schemaPath, docPath string) error {
	cmd := execute.Command{
		Bin:  v.bin,
		Args: []string{"validate", "-s", schemaPath, "-d", docPath},
		Dir:  dir,
	}
	if _, err := execute.Run(ctx, cmd); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// schemaFixture checks the tool's JSON-schema target with a three-stage round
// trip: the derived schema must validate the sample, code generated from the
// schema must reproduce the sample, and schema generation must be idempotent
// under self-application.
type schemaFixture struct {
	template  string
	validator SchemaValidator
}

func (f *schemaFixture) Name() string             { return "json-schema" }
func (f *schemaFixture) TemplateDir() string      { return f.template }
func (f *schemaFixture) ExpectedArtifact() string { return schemaArtifact }
func (f *schemaFixture) DiffViaSchema() bool      { return false }

func (f *schemaFixture) Verify(ctx context.Context, env RunEnv, samplePath string) error {
	schemaPath := filepath.Join(env.Root, schemaArtifact)

	// Stage a: the derived schema must accept the sample it came from.
	if err := f.validator.Validate(ctx, env.Root, schemaPath, samplePath); err != nil {
		return fmt.Errorf("schema derived from %s rejects its own sample: %w",
			filepath.Base(samplePath), err)
	}

	// Stage b: code generated from the schema must round-trip the sample.
	if _, err := env.Gen.Generate(ctx, execute.GenerateSpec{
		SrcKind: execute.SrcSchema,
		In:      schemaArtifact,
		Out:     schemaProgram,
		Dir:     env.Root,
	}); err != nil {
		return err
	}
	if note, excepted := env.Exceptions[filepath.Base(samplePath)]; excepted {
		env.Log.Info("output comparison suppressed by exception list",
			zap.String("sample", filepath.Base(samplePath)),
			zap.String("note", note))
	} else if err := f.verifyProgramOutput(ctx, env, samplePath); err != nil {
		return err
	}

	// Stage c: schema generation is idempotent under self-application.
	if _, err := env.Gen.Generate(ctx, execute.GenerateSpec{
		SrcKind: execute.SrcSchema,
		In:      schemaArtifact,
		Out:     schemaRederived,
		Dir:     env.Root,
	}); err != nil {
		return err
	}
	first, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("reading derived schema: %w", err)
	}
	second, err := os.ReadFile(filepath.Join(env.Root, schemaRederived))
	if err != nil {
		return fmt.Errorf("reading re-derived schema: %w", err)
	}
	diag, err := compare.Strict(first, second)
	if err != nil {
		return fmt.Errorf("comparing schemas: %w", err)
	}
	if diag != nil {
		return fmt.Errorf("schema generation is not idempotent for %s: %w",
			filepath.Base(samplePath), diag)
	}
	return nil
}

func (f *schemaFixture) verifyProgramOutput(ctx context.Context, env RunEnv, samplePath string) error {
	cmd := execute.Command{
		Bin:  "go",
		Args: []string{"run", schemaProgram, samplePath},
		Dir:  env.Root,
	}
	res, err := execute.Run(ctx, cmd)
	if err != nil {
		return err
	}
	want, err := os.ReadFile(samplePath)
	if err != nil {
		return fmt.Errorf("reading sample: %w", err)
	}
	diag, err := compare.Tolerant(want, res.Stdout)
	if err != nil {
		return fmt.Errorf("fixture json-schema: %w", err)
	}
	if diag != nil {
		return diag.WithCommand(cmd.String())
	}
	return nil
}
