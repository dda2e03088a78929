// Package trading provides trading calculation utilities.
package trading

// CalcReduceAmount computes the quantity to shave off a position for a
// partial close. ratio applies to the initial quantity when useInitial is
// true so that repeated calls do not compound; the result never exceeds
// what is currently held.
func CalcReduceAmount(currentQty, initialQty, ratio float64, useInitial bool) float64 {
	if currentQty <= 0 || ratio <= 0 {
		return 0
	}

	base := currentQty
	if useInitial && initialQty > 0 {
		base = initialQty
	}

	amount := base * ratio
	if amount > currentQty {
		amount = currentQty
	}
	return amount
}
