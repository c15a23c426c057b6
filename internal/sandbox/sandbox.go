// Package sandbox materializes isolated working copies of fixture templates.
//
// Each task gets a fresh copy of its fixture's template under a unique
// temporary root. The root is passed explicitly to every command run inside
// it; the process working directory is never changed, so no restore step
// exists to get wrong on a failure path. The copy is removed on Close unless
// retention is requested for debugging.
package sandbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sandbox is one task's private working directory.
type Sandbox struct {
	// Root is the absolute path of the materialized copy. Commands executing
	// in the sandbox use it as their explicit working directory.
	Root string

	keep bool
}

// New copies templateDir into a fresh unique directory. When keep is set the
// directory survives Close for post-mortem inspection.
func New(templateDir string, keep bool) (*Sandbox, error) {
	root := filepath.Join(os.TempDir(), "crosscheck-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	if err := copyTree(templateDir, root); err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("materializing template %s: %w", templateDir, err)
	}
	return &Sandbox{Root: root, keep: keep}, nil
}

// Close removes the sandbox unless retention was requested.
func (s *Sandbox) Close() error {
	if s.keep {
		return nil
	}
	return os.RemoveAll(s.Root)
}

// copyTree recursively copies the regular files and directories under src
// into dst, preserving permissions. Fixture templates contain only regular
// files; anything else is rejected rather than half-copied.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return fmt.Errorf("template entry %s has unsupported type %s", path, info.Mode().Type())
		}
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
