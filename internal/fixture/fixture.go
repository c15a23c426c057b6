// Package fixture defines the verification fixtures: one per target of the
// code-generation tool, each pairing a sandbox template with a pluggable
// verification procedure.
//
// Fixtures are a capability set, dispatched polymorphically: every fixture
// verifies; a fixture that additionally needs a one-time setup action (a
// dependency restore, typically) implements SetupFixture. The catalog is
// static and built once at process start; identity is the fixture name.
package fixture

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crosscheck/internal/execute"
)

// RunEnv is the per-task execution context handed to a fixture's Verify. The
// sandbox root travels here explicitly; fixtures never consult or change the
// process working directory.
type RunEnv struct {
	// Root is the sandbox directory holding the task's generated artifact.
	Root string

	// Gen invokes the code generator under test.
	Gen execute.Invoker

	// Exceptions maps sample base names to a note; listed samples have
	// their output comparison suppressed in the schema fixture.
	Exceptions map[string]string

	Log *zap.Logger
}

// Fixture is one named verification profile.
type Fixture interface {
	// Name identifies the fixture; unique within the registry.
	Name() string

	// TemplateDir is the directory copied into each sandbox.
	TemplateDir() string

	// ExpectedArtifact is the file name the generator writes in the sandbox.
	ExpectedArtifact() string

	// DiffViaSchema enables the secondary generate-via-schema diff check.
	DiffViaSchema() bool

	// Verify checks the generated artifact against the sample. A returned
	// error is a hard failure and aborts the run.
	Verify(ctx context.Context, env RunEnv, samplePath string) error
}

// SetupFixture is a Fixture with a one-time setup action. Setup runs with the
// fixture's template directory as its working directory, before any task for
// any fixture is dispatched.
type SetupFixture interface {
	Fixture
	Setup(ctx context.Context) error
}

// Registry returns the static fixture catalog. validatorBin is the external
// JSON-schema validator used by the schema fixture.
func Registry(validatorBin string) []Fixture {
	return []Fixture{
		&langFixture{
			name:     "golang",
			template: "fixtures/golang",
			artifact: "main.go",
			run: func(samplePath string) execute.Command {
				return execute.Command{Bin: "go", Args: []string{"run", "main.go", samplePath}}
			},
			strict:        true,
			diffViaSchema: true,
		},
		&withSetup{
			langFixture: &langFixture{
				name:     "csharp",
				template: "fixtures/csharp",
				artifact: "TopLevel.cs",
				run: func(samplePath string) execute.Command {
					return execute.Command{Bin: "dotnet", Args: []string{"run", "--no-restore", "--", samplePath}}
				},
				diffViaSchema: true,
			},
			action: execute.Command{Bin: "dotnet", Args: []string{"restore"}},
		},
		&withSetup{
			langFixture: &langFixture{
				name:     "typescript",
				template: "fixtures/typescript",
				artifact: "toplevel.ts",
				run: func(samplePath string) execute.Command {
					return execute.Command{Bin: "npx", Args: []string{"ts-node", "toplevel.ts", samplePath}}
				},
				diffViaSchema: true,
			},
			action: execute.Command{Bin: "npm", Args: []string{"install"}},
		},
		&schemaFixture{
			template:  "fixtures/json-schema",
			validator: &execValidator{bin: validatorBin},
		},
	}
}

// Filter returns the fixtures selected by only ("" selects all). Definitions
// are shared, never copied or mutated.
func Filter(fixtures []Fixture, only string) ([]Fixture, error) {
	if only == "" {
		return fixtures, nil
	}
	for _, f := range fixtures {
		if f.Name() == only {
			return []Fixture{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown fixture %q", only)
}

// ByName indexes fixtures for task execution.
func ByName(fixtures []Fixture) map[string]Fixture {
	m := make(map[string]Fixture, len(fixtures))
	for _, f := range fixtures {
		m[f.Name()] = f
	}
	return m
}

// Names returns registry order names, for matrix construction.
func Names(fixtures []Fixture) []string {
	names := make([]string, len(fixtures))
	for i, f := range fixtures {
		names[i] = f.Name()
	}
	return names
}
