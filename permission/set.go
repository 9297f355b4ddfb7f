package permission

import (
	"errors"
	"strings"
)

// Permission identifies a single grantable capability.
type Permission uint8

const (
	// Read grants read-class protocol commands.
	Read Permission = 1 << iota
	// Write grants write-class protocol commands.
	Write
	// Admin grants administrative protocol commands.
	Admin
)

// ErrInvalidFlag is returned by [Parse] for characters outside the r/w/a
// vocabulary.
var ErrInvalidFlag = errors.New("invalid permission flag")

// Set is a flag set over [Read], [Write], and [Admin].
//
// The zero value is the empty set.
type Set uint8

// Parse decodes a flag string ("r", "rw", "rwa", ...) into a Set.
// Repeated flags are tolerated; any other character is rejected.
func Parse(flags string) (Set, error) {
	var s Set
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case 'r':
			s.Grant(Read)
		case 'w':
			s.Grant(Write)
		case 'a':
			s.Grant(Admin)
		default:
			return 0, ErrInvalidFlag
		}
	}
	return s, nil
}

// MustParse is Parse for trusted literals; it panics on invalid input.
func MustParse(flags string) Set {
	s, err := Parse(flags)
	if err != nil {
		panic("permission: " + err.Error() + ": " + flags)
	}
	return s
}

// Has reports whether p was explicitly granted. This is the satisfies
// check used by authorization decisions; no implication rules apply.
func (s Set) Has(p Permission) bool {
	return s&Set(p) != 0
}

// Grant adds p to the set.
func (s *Set) Grant(p Permission) {
	*s |= Set(p)
}

// Revoke removes p from the set.
func (s *Set) Revoke(p Permission) {
	*s &^= Set(p)
}

// String encodes the set in canonical flag order.
func (s Set) String() string {
	var b strings.Builder
	if s.Has(Read) {
		b.WriteByte('r')
	}
	if s.Has(Write) {
		b.WriteByte('w')
	}
	if s.Has(Admin) {
		b.WriteByte('a')
	}
	return b.String()
}

// String returns the flag character for a single permission.
func (p Permission) String() string {
	switch p {
	case Read:
		return "r"
	case Write:
		return "w"
	case Admin:
		return "a"
	default:
		return "?"
	}
}
