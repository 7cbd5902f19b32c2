package scoring

import "math/big"

const (
	comboStep    = 100
	comboCap     = 1000
	comboPercent = 100
)

var maxComboMultiplier = big.NewRat(11, 10)

// ComboMultiplier returns 1 + 1% per full 100 combo, capped at 1.1 once
// combo exceeds 1000.
func ComboMultiplier(combo int64) *big.Rat {
	if combo > comboCap {
		return new(big.Rat).Set(maxComboMultiplier)
	}
	m := big.NewRat(combo/comboStep, comboPercent)
	return m.Add(m, big.NewRat(1, 1))
}
