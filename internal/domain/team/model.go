package team

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxNameLength = 100

// Team is a cricket side referenced by at least one scraped match.
type Team struct {
	ID   int64
	Name string
}

func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (t Team) Validate() error {
	name := NormalizeName(t.Name)
	if name == "" {
		return fmt.Errorf("team name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("team name exceeds %d characters", MaxNameLength)
	}

	return nil
}

// SameName reports whether a and b name the same team.
func SameName(a, b string) bool {
	return strings.EqualFold(NormalizeName(a), NormalizeName(b))
}
