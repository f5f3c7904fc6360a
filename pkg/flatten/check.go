package flatten

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind marks a line as removed or added.
type ChangeKind byte

// Change kinds.
const (
	ChangeRemoved ChangeKind = '-'
	ChangeAdded   ChangeKind = '+'
)

// Change is one differing line between two flattened outputs.
type Change struct {
	Kind ChangeKind
	Line string
}

// String renders the change in diff notation.
func (c Change) String() string {
	return string(c.Kind) + c.Line
}

// LineDiff compares two outputs line by line and returns only the lines
// that differ. An empty result means the outputs are identical.
func LineDiff(previous, current []byte) []Change {
	dmp := diffmatchpatch.New()

	prevChars, currChars, lines := dmp.DiffLinesToChars(string(previous), string(current))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(prevChars, currChars, false), lines)

	var changes []Change

	for _, diff := range diffs {
		var kind ChangeKind

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			kind = ChangeRemoved
		case diffmatchpatch.DiffInsert:
			kind = ChangeAdded
		case diffmatchpatch.DiffEqual:
			continue
		}

		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			changes = append(changes, Change{Kind: kind, Line: strings.TrimSuffix(line, "\n")})
		}
	}

	return changes
}
