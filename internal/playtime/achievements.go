package playtime

// Hours credited per unlocked achievement of each tier. Used by platforms
// that expose achievements or trophies but no playtime.
const (
	LowestTierHours = 0.5
	MidTierHours    = 2
	HighTierHours   = 5
	TopTierHours    = 20
)

// Tiers counts unlocked achievements per tier for one title
// (bronze, silver, gold, platinum on PlayStation).
type Tiers struct {
	Lowest int
	Mid    int
	High   int
	Top    int
}

func (t Tiers) Total() int {
	return nonNegative(t.Lowest) + nonNegative(t.Mid) + nonNegative(t.High) + nonNegative(t.Top)
}

// EstimateHours applies the tier weights and rounds to one decimal.
func (t Tiers) EstimateHours() float64 {
	h := float64(nonNegative(t.Lowest))*LowestTierHours +
		float64(nonNegative(t.Mid))*MidTierHours +
		float64(nonNegative(t.High))*HighTierHours +
		float64(nonNegative(t.Top))*TopTierHours
	return RoundHours(h)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
