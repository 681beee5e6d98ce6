package edit

import "fmt"

// Apply applies op to text and returns the new text and caret position.
// It fails if the operation does not fit the text.
func Apply(text string, op Operation) (string, int, error) {
	runes, cursor, err := ApplyRunes([]rune(text), op)
	if err != nil {
		return "", 0, err
	}
	return string(runes), cursor, nil
}

// ApplyRunes is Apply on a rune slice. The input slice is not modified.
func ApplyRunes(text []rune, op Operation) ([]rune, int, error) {
	if !op.Type.Valid() {
		return nil, 0, fmt.Errorf("unknown operation type %q", op.Type)
	}
	if op.Position < 0 || op.Position > len(text) {
		return nil, 0, fmt.Errorf("position %d out of range [0, %d]", op.Position, len(text))
	}

	removed := op.RemovedLength()
	if removed < 0 || op.Position+removed > len(text) {
		return nil, 0, fmt.Errorf("%s of %d runes at %d exceeds text length %d", op.Type, removed, op.Position, len(text))
	}

	var inserted []rune
	if op.Type != OpDelete {
		inserted = []rune(op.Content)
	}

	out := make([]rune, 0, len(text)-removed+len(inserted))
	out = append(out, text[:op.Position]...)
	out = append(out, inserted...)
	out = append(out, text[op.Position+removed:]...)

	return out, op.Position + len(inserted), nil
}
