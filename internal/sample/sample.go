// Package sample resolves harness arguments into the sample documents that
// drive the test matrix.
package sample

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaxSize is the size ceiling for a sample. Oversized samples stay in the
// matrix but are skipped by the verification engine, never handed to the
// code generator.
const MaxSize = 32 << 20 // 32 MiB

// Pattern matches sample files when a directory is expanded.
const Pattern = "*.json"

// Sample is one input document: absolute path plus byte size, both fixed at
// discovery time.
type Sample struct {
	Path string
	Size int64
}

// Oversized reports whether the sample exceeds the ceiling.
func (s Sample) Oversized() bool {
	return s.Size > MaxSize
}

// Name is the sample's base name, used for exception-list matching and logs.
func (s Sample) Name() string {
	return filepath.Base(s.Path)
}

// Discover resolves args into samples.
//
//   - no args: the default directory - defaultDir normally, restrictedDir when
//     restricted (pull-request CI runs have no access to the private corpus)
//   - one arg naming a directory: every Pattern match inside it
//   - otherwise: each arg is an explicit sample path
//
// Duplicates are legal and kept; each occurrence is tested independently.
func Discover(args []string, defaultDir, restrictedDir string, restricted bool) ([]Sample, error) {
	if len(args) == 0 {
		dir := defaultDir
		if restricted {
			dir = restrictedDir
		}
		return fromDir(dir)
	}
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return fromDir(args[0])
		}
	}
	return fromPaths(args)
}

func fromDir(dir string) ([]Sample, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return nil, fmt.Errorf("expanding sample directory %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no %s samples in %s", Pattern, dir)
	}
	return fromPaths(matches)
}

func fromPaths(paths []string) ([]Sample, error) {
	samples := make([]Sample, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("sample %s is a directory", p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", p, err)
		}
		samples = append(samples, Sample{Path: abs, Size: info.Size()})
	}
	return samples, nil
}
