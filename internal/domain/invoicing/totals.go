package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/facture/backend/internal/domain/shared/valueobject"
)

// Totals holds the derived amounts for one invoice. Totals are computed
// from lines, discounts and payments every time they are needed; nothing
// here is cached on the aggregate.
type Totals struct {
	SubtotalBeforeDiscount valueobject.Money
	DiscountAmount         valueobject.Money
	SubtotalAfterDiscount  valueobject.Money
	TotalVAT               valueobject.Money
	TotalInclVAT           valueobject.Money
}

// RateVAT is the VAT accumulated for one distinct rate on an invoice.
// Key is the rate's exact decimal text so that rates compare by value,
// never by float representation.
type RateVAT struct {
	Key    string
	Rate   decimal.Decimal
	Amount valueobject.Money
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals derives the invoice totals.
//
// VAT follows two distinct paths. Without a global discount each line's
// own VAT is summed as-is. With a global discount the discount is first
// apportioned over the lines by their share of the subtotal and VAT is
// re-derived per line from the discounted base. The two paths are not
// guaranteed to round identically and both are kept deliberately: the tax
// figures reported on issued documents must reproduce, not improve on,
// the historical behavior.
func (i *Invoice) ComputeTotals() Totals {
	subtotal := valueobject.Zero()
	for _, line := range i.Lines {
		subtotal = subtotal.Add(line.TotalBeforeVAT())
	}

	discount := valueobject.Zero()
	if i.GlobalDiscount.IsSet() {
		discount = i.GlobalDiscount.AppliedTo(subtotal)
	}
	afterDiscount := subtotal.Subtract(discount)

	totalVAT := valueobject.Zero()
	for _, lineVAT := range i.perLineVAT(subtotal, discount) {
		totalVAT = totalVAT.Add(lineVAT)
	}

	return Totals{
		SubtotalBeforeDiscount: subtotal,
		DiscountAmount:         discount,
		SubtotalAfterDiscount:  afterDiscount,
		TotalVAT:               totalVAT,
		TotalInclVAT:           afterDiscount.Add(totalVAT),
	}
}

// perLineVAT returns each line's VAT in line order, using the path
// selected by the presence of a global discount. A zero subtotal under a
// global discount yields zero VAT for every line: no proportion can be
// computed against an empty base.
func (i *Invoice) perLineVAT(subtotal, discount valueobject.Money) []valueobject.Money {
	vats := make([]valueobject.Money, len(i.Lines))

	if !i.GlobalDiscount.IsSet() {
		for idx, line := range i.Lines {
			vats[idx] = line.VAT()
		}
		return vats
	}

	if subtotal.IsZero() {
		for idx := range vats {
			vats[idx] = valueobject.Zero()
		}
		return vats
	}

	subtotalDec := decimal.NewFromInt(subtotal.Cents())
	for idx, line := range i.Lines {
		lineTotal := line.TotalBeforeVAT()
		proportion := decimal.NewFromInt(lineTotal.Cents()).Div(subtotalDec)
		discountShare := discount.MultiplyDecimal(proportion)
		discountedBase := lineTotal.Subtract(discountShare)
		vats[idx] = discountedBase.MultiplyDecimal(line.VATRate.Div(oneHundred))
	}
	return vats
}

// VATByRate groups the per-line VAT by distinct rate, in order of first
// appearance. The amounts already reflect the global-discount
// apportionment when one is configured, so the ledger exporter can emit
// one row per rate that sums exactly to TotalVAT.
func (i *Invoice) VATByRate() []RateVAT {
	totals := i.ComputeTotals()
	perLine := i.perLineVAT(totals.SubtotalBeforeDiscount, totals.DiscountAmount)

	var order []string
	byKey := make(map[string]*RateVAT)
	for idx, line := range i.Lines {
		key := line.VATRate.String()
		entry, ok := byKey[key]
		if !ok {
			entry = &RateVAT{Key: key, Rate: line.VATRate, Amount: valueobject.Zero()}
			byKey[key] = entry
			order = append(order, key)
		}
		entry.Amount = entry.Amount.Add(perLine[idx])
	}

	result := make([]RateVAT, 0, len(order))
	for _, key := range order {
		result = append(result, *byKey[key])
	}
	return result
}

// TotalPaid sums all recorded payments
func (i *Invoice) TotalPaid() valueobject.Money {
	total := valueobject.Zero()
	for _, p := range i.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Remaining returns the unpaid balance
func (i *Invoice) Remaining() valueobject.Money {
	return i.ComputeTotals().TotalInclVAT.Subtract(i.TotalPaid())
}

// IsFullyPaid returns true when nothing remains due
func (i *Invoice) IsFullyPaid() bool {
	return i.Remaining().LessThanOrEqual(valueobject.Zero())
}

// IsPartiallyPaid returns true when some but not all of the total is paid
func (i *Invoice) IsPartiallyPaid() bool {
	return i.TotalPaid().IsPositive() && i.Remaining().IsPositive()
}

// IsOverdue returns true when the due date has passed without full payment
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	if !i.Status.IsExportable() {
		return false
	}
	return now.After(*i.DueDate) && !i.IsFullyPaid()
}
