package edit

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		next     string
		wantOK   bool
		wantType OpType
		wantPos  int
		content  string
		replaced int
	}{
		{
			name:     "unchanged",
			previous: "hello",
			next:     "hello",
			wantOK:   false,
		},
		{
			name:     "append at end",
			previous: "hi",
			next:     "hi!",
			wantOK:   true,
			wantType: OpInsert,
			wantPos:  2,
			content:  "!",
		},
		{
			name:     "insert in middle",
			previous: "hi!",
			next:     "hi there!",
			wantOK:   true,
			wantType: OpInsert,
			wantPos:  2,
			content:  " there",
		},
		{
			name:     "select word and retype",
			previous: "hello world",
			next:     "hello there",
			wantOK:   true,
			wantType: OpReplace,
			wantPos:  6,
			content:  "there",
			replaced: 5,
		},
		{
			name:     "backspace twice",
			previous: "abc",
			next:     "a",
			wantOK:   true,
			wantType: OpDelete,
			wantPos:  1,
			content:  "bc",
			replaced: 2,
		},
		{
			name:     "first keystroke",
			previous: "",
			next:     "h",
			wantOK:   true,
			wantType: OpInsert,
			wantPos:  0,
			content:  "h",
		},
		{
			name:     "clear all",
			previous: "gone",
			next:     "",
			wantOK:   true,
			wantType: OpDelete,
			wantPos:  0,
			content:  "gone",
			replaced: 4,
		},
		{
			name:     "repeated letter resolves to the end",
			previous: "aa",
			next:     "aaa",
			wantOK:   true,
			wantType: OpInsert,
			wantPos:  2,
			content:  "a",
		},
		{
			name:     "suffix bounded by prefix",
			previous: "abab",
			next:     "ab",
			wantOK:   true,
			wantType: OpDelete,
			wantPos:  2,
			content:  "ab",
			replaced: 2,
		},
		{
			name:     "multi-byte runes",
			previous: "café",
			next:     "cafés ☕",
			wantOK:   true,
			wantType: OpInsert,
			wantPos:  4,
			content:  "s ☕",
		},
		{
			name:     "two regions collapse into one replace",
			previous: "cat and dog",
			next:     "bat and dot",
			wantOK:   true,
			wantType: OpReplace,
			wantPos:  0,
			content:  "bat and dot",
			replaced: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := Diff(tt.previous, tt.next, 0)
			if ok != tt.wantOK {
				t.Fatalf("Diff() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if op.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", op.Type, tt.wantType)
			}
			if op.Position != tt.wantPos {
				t.Errorf("Position = %d, want %d", op.Position, tt.wantPos)
			}
			if op.Content != tt.content {
				t.Errorf("Content = %q, want %q", op.Content, tt.content)
			}
			if op.ContentLength != RuneLen(tt.content) {
				t.Errorf("ContentLength = %d, want %d", op.ContentLength, RuneLen(tt.content))
			}
			if op.ReplacedLength != tt.replaced {
				t.Errorf("ReplacedLength = %d, want %d", op.ReplacedLength, tt.replaced)
			}

			got, _, err := Apply(tt.previous, op)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got != tt.next {
				t.Errorf("Apply() = %q, want %q", got, tt.next)
			}
		})
	}
}

func TestDiff_IgnoresCursor(t *testing.T) {
	a, _ := Diff("abc", "abXc", 0)
	b, _ := Diff("abc", "abXc", 3)
	if a != b {
		t.Errorf("Diff() depends on cursor: %+v vs %+v", a, b)
	}
}

func textGen() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just(""),
		rapid.StringMatching(`[ab ]{0,12}`),
		rapid.StringOf(rapid.RuneFrom([]rune("aé☕ \n"))),
	)
}

// rawTextGen also yields byte strings that are not valid UTF-8.
func rawTextGen() *rapid.Generator[string] {
	return rapid.OneOf(
		textGen(),
		rapid.Custom(func(t *rapid.T) string {
			return string(rapid.SliceOfN(rapid.SampledFrom([]byte("a\xff\xfe\xe2\x98")), 0, 8).Draw(t, "bytes"))
		}),
	)
}

func TestDiff_InvalidUTF8(t *testing.T) {
	if _, ok := Diff("a\xff", "a\xfe", 2); ok {
		t.Errorf("Diff() reported a change between texts that are equal once made valid")
	}

	op, ok := Diff("a\xff", "ab\xff", 2)
	if !ok {
		t.Fatal("Diff() returned nothing")
	}
	got, _, err := Apply(ValidText("a\xff"), op)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if want := "ab\uFFFD"; got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestDiff_ApplyReproducesValidNext(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rawTextGen().Draw(t, "a")
		b := rawTextGen().Draw(t, "b")
		va, vb := ValidText(a), ValidText(b)

		op, ok := Diff(a, b, 0)
		if ok != (va != vb) {
			t.Fatalf("Diff(%q, %q) ok = %v", a, b, ok)
		}
		if !ok {
			return
		}
		got, _, err := Apply(va, op)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got != vb {
			t.Fatalf("Apply(Diff(%q, %q)) = %q, want %q", a, b, got, vb)
		}
	})
}

func TestDiff_EqualTextsYieldNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := textGen().Draw(t, "a")
		c := rapid.IntRange(0, 20).Draw(t, "cursor")
		if _, ok := Diff(a, a, c); ok {
			t.Fatalf("Diff(%q, %q) returned an operation", a, a)
		}
	})
}

func TestDiff_ApplyReproducesNext(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := textGen().Draw(t, "a")
		b := textGen().Draw(t, "b")
		if a == b {
			return
		}

		op, ok := Diff(a, b, 0)
		if !ok {
			t.Fatalf("Diff(%q, %q) returned nothing", a, b)
		}
		got, cursor, err := Apply(a, op)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if got != b {
			t.Fatalf("Apply(Diff(%q, %q)) = %q", a, b, got)
		}
		if cursor < 0 || cursor > RuneLen(b) {
			t.Fatalf("cursor %d out of range for %q", cursor, b)
		}
	})
}
