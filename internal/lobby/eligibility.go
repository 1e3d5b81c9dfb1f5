// internal/lobby/eligibility.go
package lobby

import "github.com/jason-s-yu/gridclash/internal/models"

// Tally counts members and ready members per side.
type Tally struct {
	MembersA, MembersB int
	ReadyA, ReadyB     int
}

// Count tallies a roster. Players without a side are ignored.
func Count(roster []*models.Player) Tally {
	var t Tally
	for _, p := range roster {
		switch p.Team {
		case models.SideA:
			t.MembersA++
			if p.Ready {
				t.ReadyA++
			}
		case models.SideB:
			t.MembersB++
			if p.Ready {
				t.ReadyB++
			}
		}
	}
	return t
}

// CanStart is the strict condition: exactly TeamSize ready players on each side.
func (t Tally) CanStart() bool {
	return t.ReadyA == models.TeamSize && t.ReadyB == models.TeamSize
}

// CanForceStart is the host escape hatch: at least one player on each side, ready or not.
func (t Tally) CanForceStart() bool {
	return t.MembersA >= 1 && t.MembersB >= 1
}
