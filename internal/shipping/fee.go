package shipping

const (
	// FreeShippingThreshold is the per-seller subtotal at or above which shipping is free
	FreeShippingThreshold int64 = 500000
	// FlatFee is charged per seller below the threshold
	FlatFee int64 = 40000
)

// Fee returns the shipping fee for a purchasable subtotal.
// Every caller that shows or persists a fee goes through here.
func Fee(total int64) int64 {
	if total >= FreeShippingThreshold {
		return 0
	}
	return FlatFee
}

// OrderFee sums Fee over each seller's subtotal. Sellers ship independently,
// so the fee is never evaluated on the combined total.
func OrderFee(subtotals []int64) int64 {
	var fee int64
	for _, subtotal := range subtotals {
		fee += Fee(subtotal)
	}
	return fee
}
