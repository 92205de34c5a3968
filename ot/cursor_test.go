package ot

import "testing"

func TestCursorTransform(t *testing.T) {
	tests := []struct {
		name   string
		cursor *Cursor
		op     *Operation
		want   *Cursor
	}{
		{
			"insert before shifts forward",
			NewCursor(2),
			NewInsert(0, "ab", 5),
			NewCursor(4),
		},
		{
			"insert after leaves in place",
			NewCursor(2),
			NewInsert(4, "ab", 5),
			NewCursor(2),
		},
		{
			"delete before shifts back",
			NewCursor(4),
			NewDelete(0, 2, 5),
			NewCursor(2),
		},
		{
			"delete spanning clamps to start",
			NewCursor(3),
			NewDelete(2, 2, 5),
			NewCursor(2),
		},
		{
			"selection transformed per endpoint",
			NewSelection(1, 4),
			NewInsert(2, "xy", 5),
			NewSelection(1, 6),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cursor.Transform(tt.op)
			if !got.Equal(tt.want) {
				t.Errorf("Transform() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Transforming through a then b equals transforming through compose(a, b).
func TestCursorTransformCompose(t *testing.T) {
	a := NewInsert(1, "XY", 6)
	b := NewDelete(4, 3, 8)
	composed, err := Compose(a, b)
	if err != nil {
		t.Fatal(err)
	}

	for pos := 0; pos <= 6; pos++ {
		c := NewCursor(pos)
		stepwise := c.Transform(a).Transform(b)
		direct := c.Transform(composed)
		if !stepwise.Equal(direct) {
			t.Errorf("pos %d: stepwise %+v, composed %+v", pos, stepwise, direct)
		}
	}
}

func TestCursorCompose(t *testing.T) {
	first := NewCursor(1)
	second := NewCursor(5)
	if got := first.Compose(second); !got.Equal(second) {
		t.Errorf("Compose() = %+v, want the later cursor %+v", got, second)
	}
}

func TestMeta(t *testing.T) {
	m := &Meta{Before: NewCursor(0), After: NewCursor(5)}

	inv := m.Invert()
	if !inv.Before.Equal(m.After) || !inv.After.Equal(m.Before) {
		t.Errorf("Invert() = %+v", inv)
	}

	other := &Meta{Before: NewCursor(5), After: NewCursor(7)}
	composed := m.Compose(other)
	if !composed.Before.Equal(m.Before) || !composed.After.Equal(other.After) {
		t.Errorf("Compose() = %+v", composed)
	}

	op := NewInsert(0, "ab", 9)
	transformed := m.Transform(op)
	if transformed.Before.Position != 2 || transformed.After.Position != 7 {
		t.Errorf("Transform() = %+v", transformed)
	}

	clone := m.Clone()
	clone.After.Position = 99
	if m.After.Position == 99 {
		t.Error("Clone() shares cursors with the original")
	}
}
