package ot

import (
	"encoding/json"
	"fmt"
)

// The wire format is a JSON array. A positive integer retains, a negative
// integer deletes, a string inserts, and attributed retains/inserts are
// objects {"r": n, "attrs": {...}} / {"i": s, "attrs": {...}}.

type attributedComponent struct {
	Retain *int       `json:"r,omitempty"`
	Insert string     `json:"i,omitempty"`
	Attrs  Attributes `json:"attrs,omitempty"`
}

// MarshalJSON encodes the operation in the wire format.
func (op *Operation) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, 0, len(op.Ops))
	for _, c := range op.Ops {
		switch {
		case c.IsRetain() && c.HasEmptyAttributes():
			out = append(out, c.Retain)
		case c.IsRetain():
			n := c.Retain
			out = append(out, attributedComponent{Retain: &n, Attrs: c.Attrs})
		case c.IsInsert() && c.HasEmptyAttributes():
			out = append(out, c.Insert)
		case c.IsInsert():
			out = append(out, attributedComponent{Insert: c.Insert, Attrs: c.Attrs})
		case c.IsDelete():
			out = append(out, -c.Delete)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire format, rebuilding the operation through
// the normalizing builders so a decoded operation is always canonical.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	decoded := New()
	for i, elem := range raw {
		if len(elem) == 0 {
			return fmt.Errorf("%w: empty element %d", ErrInvalidOperation, i)
		}
		switch elem[0] {
		case '"':
			var s string
			if err := json.Unmarshal(elem, &s); err != nil {
				return fmt.Errorf("%w: element %d: %v", ErrInvalidOperation, i, err)
			}
			if s == "" {
				return fmt.Errorf("%w: empty insert at element %d", ErrInvalidOperation, i)
			}
			decoded.Insert(s, nil)
		case '{':
			var ac attributedComponent
			if err := json.Unmarshal(elem, &ac); err != nil {
				return fmt.Errorf("%w: element %d: %v", ErrInvalidOperation, i, err)
			}
			switch {
			case ac.Retain != nil && ac.Insert == "":
				if *ac.Retain <= 0 {
					return fmt.Errorf("%w: non-positive retain at element %d", ErrInvalidOperation, i)
				}
				decoded.Retain(*ac.Retain, ac.Attrs)
			case ac.Insert != "" && ac.Retain == nil:
				decoded.Insert(ac.Insert, ac.Attrs)
			default:
				return fmt.Errorf("%w: ambiguous component at element %d", ErrInvalidOperation, i)
			}
		default:
			var n int
			if err := json.Unmarshal(elem, &n); err != nil {
				return fmt.Errorf("%w: element %d: %v", ErrInvalidOperation, i, err)
			}
			switch {
			case n > 0:
				decoded.Retain(n, nil)
			case n < 0:
				decoded.Delete(-n)
			default:
				return fmt.Errorf("%w: zero-length component at element %d", ErrInvalidOperation, i)
			}
		}
	}
	op.Ops = decoded.Ops
	return nil
}
