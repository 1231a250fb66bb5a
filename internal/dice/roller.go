package dice

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Result is one throw of a notation. Rolls holds every die, highest first;
// Kept is the prefix of Rolls that counts toward Total.
type Result struct {
	Rolls []int `json:"rolls"`
	Kept  []int `json:"kept"`
	Total int   `json:"total"`
}

// Roller draws dice from a random source. It is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller seeded from the wall clock.
func NewRoller() *Roller {
	seed := uint64(time.Now().UnixNano())
	return NewRollerWithSource(rand.NewPCG(seed, seed>>1|1))
}

// NewRollerWithSource returns a Roller drawing from src. Tests pass a
// fixed-seed source to get repeatable throws.
func NewRollerWithSource(src rand.Source) *Roller {
	return &Roller{rng: rand.New(src)}
}

// Roll throws n once.
func (r *Roller) Roll(n Notation) Result {
	rolls := make([]int, n.Dice)
	r.mu.Lock()
	for i := range rolls {
		rolls[i] = r.rng.IntN(n.Sides) + 1
	}
	r.mu.Unlock()

	slices.SortFunc(rolls, func(a, b int) int { return b - a })
	keep := min(n.Keep, len(rolls))
	kept := rolls[:keep:keep]

	total := 0
	for _, v := range kept {
		total += v
	}
	return Result{Rolls: rolls, Kept: kept, Total: total}
}

// RollMany throws n the given number of times.
func (r *Roller) RollMany(n Notation, times int) ([]Result, error) {
	if times < 1 || times > MaxRolls {
		return nil, fmt.Errorf("dice: number of rolls must be between 1 and %d, got %d", MaxRolls, times)
	}
	out := make([]Result, 0, times)
	for range times {
		out = append(out, r.Roll(n))
	}
	return out, nil
}

// Format renders results the way the tool reports them:
//
//	ROLLS: 6, 2 -> RETURNS: 8
//
// and, for more than one result, one numbered line per throw.
func Format(results []Result) string {
	if len(results) == 1 {
		return formatResult(results[0])
	}
	lines := make([]string, 0, len(results))
	for i, res := range results {
		lines = append(lines, fmt.Sprintf("Roll %d: %s", i+1, formatResult(res)))
	}
	return strings.Join(lines, "\n")
}

func formatResult(res Result) string {
	parts := make([]string, len(res.Rolls))
	for i, v := range res.Rolls {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("ROLLS: %s -> RETURNS: %d", strings.Join(parts, ", "), res.Total)
}
