package ot

// Attributes is a set of formatting key/value pairs carried by retain and
// insert components. The core treats them opaquely; an empty string value is
// the "unset" sentinel and removes the key when merged into a character's
// attribute map.
type Attributes map[string]string

// Equal reports whether two attribute maps contain the same keys and values.
// Order is irrelevant; nil and empty maps compare equal.
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the map carries no attributes.
func (a Attributes) IsEmpty() bool { return len(a) == 0 }

// Clone returns an independent copy. Cloning nil yields nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	cp := make(Attributes, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}

// mergeInto applies a onto dst: set values overwrite, unset sentinels delete.
// dst may be nil; the (possibly new) map is returned.
func (a Attributes) mergeInto(dst Attributes) Attributes {
	if len(a) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Attributes, len(a))
	}
	for k, v := range a {
		if v == "" {
			delete(dst, k)
		} else {
			dst[k] = v
		}
	}
	return dst
}

// withoutConflicts returns a copy of a with every key dropped that other sets
// to a different value. Used by Transform, where the other side's attributes
// win on concurrent retains.
func (a Attributes) withoutConflicts(other Attributes) Attributes {
	if len(a) == 0 || len(other) == 0 {
		return a
	}
	var cp Attributes
	for k, v := range a {
		if ov, ok := other[k]; ok && ov != v {
			if cp == nil {
				cp = a.Clone()
			}
			delete(cp, k)
		}
	}
	if cp == nil {
		return a
	}
	if len(cp) == 0 {
		return nil
	}
	return cp
}
