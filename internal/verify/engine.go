// Package verify executes one work item end to end: sandbox, generation,
// fixture verification, and the optional secondary schema diff.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"crosscheck/internal/execute"
	"crosscheck/internal/fixture"
	"crosscheck/internal/matrix"
	"crosscheck/internal/sandbox"
)

// Kind classifies a non-fatal task outcome. Hard failures are ordinary
// errors and abort the run.
type Kind int

const (
	// Passed: generation and verification succeeded.
	Passed Kind = iota

	// Tolerated: the secondary schema diff diverged. Logged with full
	// context but deliberately not a failure while the divergence is a
	// known issue.
	Tolerated

	// Skipped: the sample exceeds the size ceiling; no sandbox was created
	// and the generator was never invoked.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Passed:
		return "passed"
	case Tolerated:
		return "tolerated"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of one work item.
type Outcome struct {
	Kind   Kind
	Item   matrix.WorkItem
	Detail string
}

// Engine runs work items. Safe for concurrent use: all fields are read-only
// after construction and each item owns its sandbox exclusively.
type Engine struct {
	Fixtures   map[string]fixture.Fixture
	Gen        execute.Invoker
	Exceptions map[string]string

	// Keep retains sandbox directories after each item.
	Keep bool

	Log *zap.Logger
}

// Execute runs one item. The returned error is a hard failure; any other
// result is expressed in the Outcome.
func (e *Engine) Execute(ctx context.Context, item matrix.WorkItem) (Outcome, error) {
	fx, ok := e.Fixtures[item.Fixture]
	if !ok {
		return Outcome{}, fmt.Errorf("work item references unknown fixture %q", item.Fixture)
	}

	if item.Sample.Oversized() {
		e.Log.Info("skipping oversized sample",
			zap.String("sample", item.Sample.Name()),
			zap.String("fixture", fx.Name()),
			zap.Int64("size", item.Sample.Size))
		return Outcome{Kind: Skipped, Item: item, Detail: "sample exceeds size ceiling"}, nil
	}

	sb, err := sandbox.New(fx.TemplateDir(), e.Keep)
	if err != nil {
		return Outcome{}, err
	}
	defer sb.Close()

	env := fixture.RunEnv{
		Root:       sb.Root,
		Gen:        e.Gen,
		Exceptions: e.Exceptions,
		Log:        e.Log,
	}

	if _, err := e.Gen.Generate(ctx, execute.GenerateSpec{
		SrcKind: execute.SrcJSON,
		In:      item.Sample.Path,
		Out:     fx.ExpectedArtifact(),
		Dir:     sb.Root,
	}); err != nil {
		return Outcome{}, fmt.Errorf("fixture %s, sample %s: %w", fx.Name(), item.Sample.Name(), err)
	}

	if err := fx.Verify(ctx, env, item.Sample.Path); err != nil {
		return Outcome{}, fmt.Errorf("fixture %s, sample %s: %w", fx.Name(), item.Sample.Name(), err)
	}

	if fx.DiffViaSchema() {
		same, detail, err := e.diffViaSchema(ctx, fx, env, item)
		if err != nil {
			return Outcome{}, fmt.Errorf("fixture %s, sample %s: %w", fx.Name(), item.Sample.Name(), err)
		}
		if !same {
			// Known divergence between direct and via-schema generation;
			// visible in the outcome, not fatal.
			e.Log.Warn("via-schema artifact diverges from direct artifact",
				zap.String("fixture", fx.Name()),
				zap.String("sample", item.Sample.Name()),
				zap.String("diff", detail))
			return Outcome{Kind: Tolerated, Item: item, Detail: detail}, nil
		}
	}

	return Outcome{Kind: Passed, Item: item}, nil
}

// diffViaSchema regenerates the fixture artifact through an intermediate
// schema and diffs it against the directly generated artifact. The secondary
// output keeps the expected artifact's filename, in a via/ subdirectory: the
// tool infers the target language from the output extension, so any other
// name would request a different (or no) language than the direct artifact.
func (e *Engine) diffViaSchema(ctx context.Context, fx fixture.Fixture, env fixture.RunEnv, item matrix.WorkItem) (bool, string, error) {
	const (
		interSchema = "diff-schema.json"
		viaDir      = "via"
	)
	viaArtifact := filepath.Join(viaDir, fx.ExpectedArtifact())
	if err := os.MkdirAll(filepath.Join(env.Root, viaDir), 0o755); err != nil {
		return false, "", fmt.Errorf("creating via-schema directory: %w", err)
	}

	if _, err := e.Gen.Generate(ctx, execute.GenerateSpec{
		SrcKind: execute.SrcJSON,
		In:      item.Sample.Path,
		Out:     interSchema,
		Dir:     env.Root,
	}); err != nil {
		return false, "", err
	}
	if _, err := e.Gen.Generate(ctx, execute.GenerateSpec{
		SrcKind: execute.SrcSchema,
		In:      interSchema,
		Out:     viaArtifact,
		Dir:     env.Root,
	}); err != nil {
		return false, "", err
	}

	direct, err := os.ReadFile(filepath.Join(env.Root, fx.ExpectedArtifact()))
	if err != nil {
		return false, "", fmt.Errorf("reading direct artifact: %w", err)
	}
	via, err := os.ReadFile(filepath.Join(env.Root, viaArtifact))
	if err != nil {
		return false, "", fmt.Errorf("reading via-schema artifact: %w", err)
	}
	if bytes.Equal(direct, via) {
		return true, "", nil
	}
	return false, cmp.Diff(string(direct), string(via)), nil
}
