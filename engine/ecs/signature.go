package ecs

// Signature is a set of up to 256 component type ids. Each bit corresponds to a ComponentType.
type Signature [4]uint64

// Set enables the bit for id.
func (s *Signature) Set(id ComponentType) {
	s[id>>6] |= uint64(1) << (id & 63)
}

// Unset disables the bit for id.
func (s *Signature) Unset(id ComponentType) {
	s[id>>6] &^= uint64(1) << (id & 63)
}

// Has reports whether the bit for id is set.
func (s Signature) Has(id ComponentType) bool {
	return s[id>>6]&(uint64(1)<<(id&63)) != 0
}

// Contains reports whether every bit set in sub is also set in s.
//
// Parameters:
//   - sub: the required set
//
// Returns:
//   - bool: true if s is a superset of sub
func (s Signature) Contains(sub Signature) bool {
	return s[0]&sub[0] == sub[0] &&
		s[1]&sub[1] == sub[1] &&
		s[2]&sub[2] == sub[2] &&
		s[3]&sub[3] == sub[3]
}

// Empty reports whether no bit is set.
func (s Signature) Empty() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}
