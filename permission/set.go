package permission

import "sort"

// Set is an immutable permission set. The zero value is empty.
type Set struct {
	registry *Registry
	mask     Mask64
	extra    map[string]struct{}
}

// Has reports whether p is in the set.
func (s Set) Has(p string) bool {
	if s.registry != nil {
		if bit, ok := s.registry.Bit(p); ok {
			return s.mask.Has(bit)
		}
	}
	_, ok := s.extra[p]
	return ok
}

// HasAny reports whether at least one of ps is in the set. It is false for an
// empty ps.
func (s Set) HasAny(ps ...string) bool {
	for _, p := range ps {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of ps is in the set.
func (s Set) HasAll(ps ...string) bool {
	for _, p := range ps {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of permissions in the set.
func (s Set) Len() int {
	n := len(s.extra)
	for bit := 0; bit < maxBits; bit++ {
		if s.mask.Has(bit) {
			n++
		}
	}
	return n
}

// Mask returns the registered part of the set as a bitmask.
func (s Set) Mask() Mask64 {
	return s.mask
}

// Names returns the permissions in registry order, followed by unregistered
// names in lexical order.
func (s Set) Names() []string {
	out := make([]string, 0, s.Len())
	if s.registry != nil {
		for bit := 0; bit < maxBits; bit++ {
			if !s.mask.Has(bit) {
				continue
			}
			if name, ok := s.registry.Name(bit); ok {
				out = append(out, name)
			}
		}
	}
	if len(s.extra) > 0 {
		extra := make([]string, 0, len(s.extra))
		for name := range s.extra {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		out = append(out, extra...)
	}
	return out
}
