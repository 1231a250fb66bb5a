// Package dice parses tabletop dice notation and rolls it.
//
// Supported forms are XdY (roll X dice with Y sides and sum them) and XdYkZ
// (roll X dice with Y sides and keep the highest Z).
package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxDice  = 1000
	MaxSides = 1_000_000
	MaxRolls = 100
)

// ErrInvalidNotation is wrapped by every parse failure.
var ErrInvalidNotation = errors.New("invalid dice notation")

var notationPattern = regexp.MustCompile(`^(\d+)[dD](\d+)(?:[kK](\d+))?$`)

// Notation is a parsed dice expression.
type Notation struct {
	Dice  int
	Sides int
	Keep  int
}

func (n Notation) String() string {
	if n.Keep == n.Dice {
		return fmt.Sprintf("%dd%d", n.Dice, n.Sides)
	}
	return fmt.Sprintf("%dd%dk%d", n.Dice, n.Sides, n.Keep)
}

// Parse reads XdY or XdYkZ. Keep defaults to the number of dice.
func Parse(s string) (Notation, error) {
	raw := strings.TrimSpace(s)
	m := notationPattern.FindStringSubmatch(raw)
	if m == nil {
		return Notation{}, fmt.Errorf("%w: %q. Use format 'XdY' or 'XdYkZ'", ErrInvalidNotation, s)
	}

	dice, err := parseCount(m[1], "number of dice", MaxDice)
	if err != nil {
		return Notation{}, err
	}
	sides, err := parseCount(m[2], "number of sides", MaxSides)
	if err != nil {
		return Notation{}, err
	}
	keep := dice
	if m[3] != "" {
		keep, err = parseCount(m[3], "keep count", dice)
		if err != nil {
			return Notation{}, err
		}
	}
	return Notation{Dice: dice, Sides: sides, Keep: keep}, nil
}

func parseCount(s, what string, max int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidNotation, what, s)
	}
	if n < 1 || n > max {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d, got %d", ErrInvalidNotation, what, max, n)
	}
	return n, nil
}
