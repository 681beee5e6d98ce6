package note

import (
	"strings"
	"testing"

	"github.com/hpungsan/thoughts/internal/edit"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"  Hello  ", "hello"},
		{"Buy\tMILK\n\ntoday", "buy milk today"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("é", TitleMaxChars+5)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", ""},
		{"blank lines", "\n  \n", ""},
		{"first line", "groceries\nmilk\neggs", "groceries"},
		{"skips leading blanks", "\n\n  call   mom \nlater", "call mom"},
		{"truncated", long, strings.Repeat("é", TitleMaxChars-1) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Title(tt.content)
			if got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
			if CountChars(got) > TitleMaxChars {
				t.Errorf("Title() has %d chars", CountChars(got))
			}
		})
	}
}

func TestMatches(t *testing.T) {
	if !Matches("Hello  World", "hello world") {
		t.Error("expected case and whitespace insensitive match")
	}
	if !Matches("anything", "  ") {
		t.Error("empty query should match")
	}
	if Matches("hello", "bye") {
		t.Error("unexpected match")
	}
}

func TestToSummary(t *testing.T) {
	n := &Note{ID: 3, Content: "hi there!\nmore", CreatedAt: 100, OperationCount: 4}
	s := n.ToSummary()
	if s.ID != 3 || s.Title != "hi there!" || s.Chars != 14 || !s.HasHistory {
		t.Errorf("ToSummary() = %+v", s)
	}

	n.OperationCount = 0
	if n.ToSummary().HasHistory {
		t.Error("note without operations reports history")
	}
}

func TestExportRecordRoundTrip(t *testing.T) {
	ops := []edit.Operation{
		{SessionID: 9, SequenceNum: 1, Type: edit.OpInsert, Content: "hi", ContentLength: 2},
	}
	n := &Note{ID: 9, Content: "hi", CreatedAt: 50, OperationCount: 7}

	got := ToExportRecord(n, ops).ToNote()
	if got.ID != 9 || got.Content != "hi" || got.CreatedAt != 50 {
		t.Errorf("ToNote() = %+v", got)
	}
	if got.OperationCount != 1 {
		t.Errorf("OperationCount = %d, want recomputed 1", got.OperationCount)
	}
}
