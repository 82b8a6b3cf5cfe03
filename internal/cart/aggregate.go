package cart

import (
	"github.com/shopspring/decimal"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/shipping"
)

var hundred = decimal.NewFromInt(100)

// View is the grouped cart as shown to the customer
type View struct {
	Groups     []domain.ShopGroup `json:"groups"`
	OutOfStock []domain.CartLine  `json:"outOfStock"`
	Summary    domain.CartSummary `json:"summary"`
}

// EffectivePrice applies a percentage discount to a unit price and floors
// the result to a whole currency unit.
func EffectivePrice(unitPrice int64, discountPct float64) int64 {
	d := decimal.NewFromFloat(discountPct)
	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(hundred) {
		d = hundred
	}
	return decimal.NewFromInt(unitPrice).
		Mul(hundred.Sub(d)).
		Div(hundred).
		Floor().
		IntPart()
}

// LineTotal is the effective price times quantity
func LineTotal(line domain.CartLine) int64 {
	return EffectivePrice(line.UnitPrice, line.DiscountPct) * int64(line.Quantity)
}

// Aggregate groups lines by seller in order of first appearance and moves
// lines without stock into a separate bucket excluded from every total.
func Aggregate(lines []domain.CartLine) View {
	view := View{
		Groups:     []domain.ShopGroup{},
		OutOfStock: []domain.CartLine{},
	}
	index := make(map[string]int)

	for _, line := range lines {
		if !line.InStock() {
			view.OutOfStock = append(view.OutOfStock, line)
			continue
		}
		i, ok := index[line.ShopID]
		if !ok {
			i = len(view.Groups)
			index[line.ShopID] = i
			view.Groups = append(view.Groups, domain.ShopGroup{
				ShopID:   line.ShopID,
				ShopName: line.ShopName,
			})
		}
		view.Groups[i].Lines = append(view.Groups[i].Lines, line)
	}

	view.Summary = Summarize(lines)
	return view
}

// Summarize computes the cart summary over purchasable lines
func Summarize(lines []domain.CartLine) domain.CartSummary {
	var summary domain.CartSummary
	for _, line := range lines {
		if !line.InStock() {
			summary.OutOfStockCount++
			continue
		}
		summary.TotalPrice += LineTotal(line)
		summary.TotalItems += line.Quantity
		summary.BuyableItems++
	}
	if summary.BuyableItems > 0 {
		summary.ShippingFee = shipping.Fee(summary.TotalPrice)
	}
	return summary
}

// Purchasable filters out lines without stock
func Purchasable(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.InStock() {
			out = append(out, line)
		}
	}
	return out
}
