package edit

import (
	"strings"
	"unicode/utf8"
)

// ValidText replaces each run of invalid UTF-8 bytes in s with U+FFFD.
func ValidText(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// Diff computes the single edit that turns previous into next.
//
// It finds the longest common prefix, then the longest common suffix of what
// remains (bounded so the two never overlap), and classifies the differing
// middle. Only one contiguous region is detected per call: callers sample once
// per keystroke, and a paste or multi-cursor edit comes out as one larger
// replace.
//
// The returned operation has no ID, SessionID, SequenceNum or TimestampMs; the
// caller owns those. ok is false when the texts are equal.
//
// Both texts pass through ValidText first, so "a\xff" and "a\xfe" are equal.
// Callers that keep the text should keep ValidText(next).
//
// cursor is the caret position after the change. It does not affect the result.
func Diff(previous, next string, cursor int) (op Operation, ok bool) {
	previous, next = ValidText(previous), ValidText(next)
	if previous == next {
		return Operation{}, false
	}

	prev := []rune(previous)
	cur := []rune(next)

	limit := min(len(prev), len(cur))

	p := 0
	for p < limit && prev[p] == cur[p] {
		p++
	}

	s := 0
	for s < limit-p && prev[len(prev)-1-s] == cur[len(cur)-1-s] {
		s++
	}

	deleted := string(prev[p : len(prev)-s])
	inserted := string(cur[p : len(cur)-s])

	switch {
	case deleted != "" && inserted != "":
		op = Operation{Type: OpReplace, Position: p, Content: inserted}
		op.Normalize()
		op.ReplacedLength = len(prev) - s - p
	case inserted != "":
		op = Operation{Type: OpInsert, Position: p, Content: inserted}
		op.Normalize()
	case deleted != "":
		op = Operation{Type: OpDelete, Position: p, Content: deleted}
		op.Normalize()
	default:
		return Operation{}, false
	}
	return op, true
}
