// Package compare implements JSON equivalence for verification results.
//
// Two modes: Strict is exact structural equality over parsed values; Tolerant
// compares RFC 8785 canonical forms, so numeric representation and object key
// order never cause a mismatch. A mismatch is reported as a *Diagnostic
// carrying both values and the originating command, not a bare boolean.
package compare

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/go-cmp/cmp"
)

// Diagnostic describes one comparison mismatch. It implements error so a
// mismatch can propagate like any other verification failure.
type Diagnostic struct {
	Expected any
	Actual   any

	// Command is the external command whose output is being compared,
	// attached by the caller via WithCommand.
	Command string

	// Diff is a human-readable structural diff.
	Diff string
}

func (d *Diagnostic) Error() string {
	if d.Command != "" {
		return fmt.Sprintf("output mismatch from %q:\n%s", d.Command, d.Diff)
	}
	return "output mismatch:\n" + d.Diff
}

// WithCommand attaches the originating command and returns d for chaining.
func (d *Diagnostic) WithCommand(command string) *Diagnostic {
	d.Command = command
	return d
}

// Strict compares two JSON documents by exact structure: object key sets and
// every nested value must match, array order matters. A nil return means
// equal. Inputs are never mutated.
func Strict(expected, actual []byte) (*Diagnostic, error) {
	var ev, av any
	if err := json.Unmarshal(expected, &ev); err != nil {
		return nil, fmt.Errorf("parsing expected value: %w", err)
	}
	if err := json.Unmarshal(actual, &av); err != nil {
		return nil, fmt.Errorf("parsing actual value: %w", err)
	}
	diff := cmp.Diff(ev, av)
	if diff == "" {
		return nil, nil
	}
	return &Diagnostic{Expected: ev, Actual: av, Diff: diff}, nil
}

// Tolerant compares two JSON documents up to representation: both are
// serialized to their RFC 8785 canonical form and the canonical bytes are
// compared. Key ordering and numeric formatting drift ("1.0" vs "1") are
// absorbed; structural differences still mismatch.
func Tolerant(expected, actual []byte) (*Diagnostic, error) {
	ec, err := jsoncanonicalizer.Transform(expected)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing expected value: %w", err)
	}
	ac, err := jsoncanonicalizer.Transform(actual)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing actual value: %w", err)
	}
	if bytes.Equal(ec, ac) {
		return nil, nil
	}

	// Canonical forms differ; parse for a readable structural diff.
	var ev, av any
	if err := json.Unmarshal(ec, &ev); err != nil {
		return nil, fmt.Errorf("parsing expected value: %w", err)
	}
	if err := json.Unmarshal(ac, &av); err != nil {
		return nil, fmt.Errorf("parsing actual value: %w", err)
	}
	return &Diagnostic{Expected: ev, Actual: av, Diff: cmp.Diff(ev, av)}, nil
}
