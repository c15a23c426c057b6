package fixture

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"crosscheck/internal/compare"
	"crosscheck/internal/execute"
)

// langFixture verifies a target language by running the generated artifact
// against the raw sample and comparing its JSON output to the sample itself.
type langFixture struct {
	name     string
	template string
	artifact string

	// run builds the command that executes the generated artifact inside the
	// sandbox; the artifact must print the re-serialized sample on stdout.
	run func(samplePath string) execute.Command

	// strict selects exact structural comparison; otherwise representational
	// drift in the artifact's output is tolerated.
	strict bool

	diffViaSchema bool
}

func (f *langFixture) Name() string             { return f.name }
func (f *langFixture) TemplateDir() string      { return f.template }
func (f *langFixture) ExpectedArtifact() string { return f.artifact }
func (f *langFixture) DiffViaSchema() bool      { return f.diffViaSchema }

// withSetup layers the one-time setup capability onto a fixture. Only
// fixtures wrapped here satisfy SetupFixture, so the setup phase sees exactly
// the fixtures that have a real action to run.
type withSetup struct {
	*langFixture
	action execute.Command
}

// Setup runs the fixture's one-time action in the template directory, so the
// restored dependencies are part of every sandbox copied from it.
func (f *withSetup) Setup(ctx context.Context) error {
	cmd := f.action
	cmd.Dir = f.template
	if _, err := execute.Run(ctx, cmd); err != nil {
		return fmt.Errorf("fixture %s setup: %w", f.name, err)
	}
	return nil
}

func (f *langFixture) Verify(ctx context.Context, env RunEnv, samplePath string) error {
	cmd := f.run(samplePath)
	cmd.Dir = env.Root
	res, err := execute.Run(ctx, cmd)
	if err != nil {
		return err
	}

	want, err := os.ReadFile(samplePath)
	if err != nil {
		return fmt.Errorf("reading sample: %w", err)
	}

	diag, err := compareOutput(f.strict, want, res.Stdout)
	if err != nil {
		return fmt.Errorf("fixture %s: %w", f.name, err)
	}
	if diag != nil {
		env.Log.Error("artifact output mismatch",
			zap.String("fixture", f.name),
			zap.String("sample", samplePath),
			zap.String("command", cmd.String()))
		return diag.WithCommand(cmd.String())
	}
	return nil
}

func compareOutput(strict bool, expected, actual []byte) (*compare.Diagnostic, error) {
	if strict {
		return compare.Strict(expected, actual)
	}
	return compare.Tolerant(expected, actual)
}
