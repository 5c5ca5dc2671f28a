package types

// AtomsPerCoin defines the number of smallest units in one coin.
const AtomsPerCoin int64 = 100_000_000

// Amount is a quantity in atoms. Negative values only appear in intermediate
// arithmetic; serialized outputs carry non-negative amounts.
type Amount int64

// NewAmountFromCoins converts whole coins to atoms.
func NewAmountFromCoins(coins int64) Amount {
	return Amount(coins * AtomsPerCoin)
}

// ToCoins returns the floating-point coin value (for display only, never arithmetic).
func (a Amount) ToCoins() float64 {
	return float64(a) / float64(AtomsPerCoin)
}
