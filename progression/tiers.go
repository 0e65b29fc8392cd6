package progression

import "math"

// Tier is a named band of point totals representing competitive standing.
type Tier string

const (
	TierAmateur   Tier = "amateur"
	TierSemiPro   Tier = "semi_pro"
	TierPro       Tier = "pro"
	TierContender Tier = "contender"
	TierElite     Tier = "elite"
)

// TierDefinition describes one band of the ladder. MaxPoints is inclusive;
// the top band is unbounded and uses math.MaxInt.
type TierDefinition struct {
	Name      Tier
	MinPoints int
	MaxPoints int
	Benefits  []string
}

// tierLadder is ordered by MinPoints ascending. Bands are contiguous and
// non-overlapping; TierFor depends on both properties.
var tierLadder = []TierDefinition{
	{Name: TierAmateur, MinPoints: 0, MaxPoints: 19, Benefits: []string{"league listing"}},
	{Name: TierSemiPro, MinPoints: 20, MaxPoints: 39, Benefits: []string{"league listing", "event priority"}},
	{Name: TierPro, MinPoints: 40, MaxPoints: 89, Benefits: []string{"league listing", "event priority", "sponsor pool"}},
	{Name: TierContender, MinPoints: 90, MaxPoints: 149, Benefits: []string{"league listing", "event priority", "sponsor pool", "title eligibility"}},
	{Name: TierElite, MinPoints: 150, MaxPoints: math.MaxInt, Benefits: []string{"league listing", "event priority", "sponsor pool", "title eligibility", "main card slots"}},
}

// Tiers returns the full ladder ordered from lowest to highest band.
func Tiers() []TierDefinition {
	out := make([]TierDefinition, len(tierLadder))
	copy(out, tierLadder)
	return out
}

// TierFor returns the band containing the given point total. Negative totals
// are legal (losing streaks can drive stored points below zero) and resolve
// to the lowest band.
func TierFor(points int) TierDefinition {
	for _, def := range tierLadder {
		if points <= def.MaxPoints {
			return def
		}
	}
	return tierLadder[len(tierLadder)-1]
}

// Definition returns the band for a named tier. Unknown names resolve to the
// lowest band so that a corrupted row degrades instead of panicking.
func Definition(tier Tier) TierDefinition {
	for _, def := range tierLadder {
		if def.Name == tier {
			return def
		}
	}
	return tierLadder[0]
}

// Rank returns the zero-based position of the tier on the ladder.
func Rank(tier Tier) int {
	for i, def := range tierLadder {
		if def.Name == tier {
			return i
		}
	}
	return 0
}

// NextTier returns the band above the given tier, or false from the top band.
func NextTier(tier Tier) (TierDefinition, bool) {
	i := Rank(tier)
	if i >= len(tierLadder)-1 {
		return TierDefinition{}, false
	}
	return tierLadder[i+1], true
}

// PreviousTier returns the band below the given tier, or false from the floor.
func PreviousTier(tier Tier) (TierDefinition, bool) {
	i := Rank(tier)
	if i <= 0 {
		return TierDefinition{}, false
	}
	return tierLadder[i-1], true
}

// IsValidTier reports whether the name matches a ladder band.
func IsValidTier(tier Tier) bool {
	for _, def := range tierLadder {
		if def.Name == tier {
			return true
		}
	}
	return false
}
