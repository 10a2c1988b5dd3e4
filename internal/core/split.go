package core

// SplitAmounts divides a bill total evenly into n shares of cents.
//
// When the total does not divide evenly, the leftover cents are distributed
// one each to the first shares. Callers assign shares to roommates ordered
// by ascending roommate ID, which makes the remainder placement
// deterministic and reproducible. The shares always sum to exactly the
// total.
//
// n == 0 returns ErrNoRoommates: a bill in an empty house cannot be split.
func SplitAmounts(total Money, n int) ([]Money, error) {
	if n <= 0 {
		return nil, ErrNoRoommates
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}

	base := total.Cents / int64(n)
	remainder := total.Cents % int64(n)

	shares := make([]Money, n)
	for i := range shares {
		shares[i] = Money{Cents: base}
		if int64(i) < remainder {
			shares[i].Cents++
		}
	}
	return shares, nil
}
