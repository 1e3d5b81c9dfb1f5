// internal/models/side.go
package models

import "fmt"

// Side identifies one of the two competing teams. The zero value means "no side".
type Side string

const (
	SideNone Side = ""
	SideA    Side = "A"
	SideB    Side = "B"
)

// TeamSize is the maximum number of players on one side.
const TeamSize = 3

// Valid reports whether s is one of the two playable sides.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Other returns the opposing side. SideNone maps to itself.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return SideNone
}

// ParseSide accepts "A"/"B" in either case.
func ParseSide(v string) (Side, error) {
	switch v {
	case "A", "a":
		return SideA, nil
	case "B", "b":
		return SideB, nil
	}
	return SideNone, fmt.Errorf("invalid side %q", v)
}
