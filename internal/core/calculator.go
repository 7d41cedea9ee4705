package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// currencyPrecision is the number of decimal places of the smallest currency unit.
const currencyPrecision int32 = 2

// RoundMoney rounds to the smallest currency unit, half to even.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(currencyPrecision)
}

// CalculatorKind selects the strategy a Calculator uses to price its target.
type CalculatorKind string

const (
	// CalculatorPerItem charges PreferredAmount for every unit across the resolved line items.
	CalculatorPerItem CalculatorKind = "per_item"
	// CalculatorPerOrder charges PreferredAmount once per order, whatever the item count.
	CalculatorPerOrder CalculatorKind = "per_order"
	// CalculatorFlatPercent charges PreferredPercent of the resolved items' subtotal.
	CalculatorFlatPercent CalculatorKind = "flat_percent"
	// CalculatorFlatRate charges PreferredAmount regardless of the target.
	CalculatorFlatRate CalculatorKind = "flat_rate"
)

// Calculator is a configured fee strategy. It holds no state beyond its preferences,
// so one value may be shared freely between goroutines.
type Calculator struct {
	Kind             CalculatorKind  `json:"kind" jsonschema:"enum=per_item,enum=per_order,enum=flat_percent,enum=flat_rate"`
	PreferredAmount  decimal.Decimal `json:"preferred_amount"`
	PreferredPercent decimal.Decimal `json:"preferred_percent"`
}

// PerItemCalculator returns a per_item calculator charging amount per unit.
func PerItemCalculator(amount decimal.Decimal) Calculator {
	return Calculator{Kind: CalculatorPerItem, PreferredAmount: amount}
}

// PerOrderCalculator returns a per_order calculator charging amount once per order.
func PerOrderCalculator(amount decimal.Decimal) Calculator {
	return Calculator{Kind: CalculatorPerOrder, PreferredAmount: amount}
}

// FlatPercentCalculator returns a calculator charging percent (e.g. 10 for 10 %) of the subtotal.
func FlatPercentCalculator(percent decimal.Decimal) Calculator {
	return Calculator{Kind: CalculatorFlatPercent, PreferredPercent: percent}
}

// FlatRateCalculator returns a calculator charging a fixed amount.
func FlatRateCalculator(amount decimal.Decimal) Calculator {
	return Calculator{Kind: CalculatorFlatRate, PreferredAmount: amount}
}

// Preferences returns the configured parameters of the strategy by name, without computing anything.
func (c Calculator) Preferences() map[string]decimal.Decimal {
	switch c.Kind {
	case CalculatorFlatPercent:
		return map[string]decimal.Decimal{"preferred_percent": c.PreferredPercent}
	case CalculatorPerItem, CalculatorPerOrder, CalculatorFlatRate:
		return map[string]decimal.Decimal{"preferred_amount": c.PreferredAmount}
	default:
		return map[string]decimal.Decimal{}
	}
}

// Validate rejects unknown strategies and negative percentages.
// Negative amounts are allowed so a fee can act as a credit.
func (c Calculator) Validate() error {
	switch c.Kind {
	case CalculatorPerItem, CalculatorPerOrder, CalculatorFlatRate:
		return nil
	case CalculatorFlatPercent:
		if c.PreferredPercent.IsNegative() {
			return fmt.Errorf("%w: negative percent %s", ErrInvalidCalculator, c.PreferredPercent)
		}
		return nil
	case "":
		return fmt.Errorf("%w: no strategy configured", ErrInvalidCalculator)
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidCalculator, c.Kind)
	}
}

// Compute prices the target. The result is rounded to the smallest currency unit.
func (c Calculator) Compute(t Target) (decimal.Decimal, error) {
	if err := c.Validate(); err != nil {
		return decimal.Zero, err
	}

	set := LineItemsFor(t)
	if set.Raw != nil {
		return decimal.Zero, fmt.Errorf("%w: got %T", ErrUnsupportedTarget, set.Raw[0])
	}

	var amount decimal.Decimal
	switch c.Kind {
	case CalculatorPerItem:
		amount = c.PreferredAmount.Mul(decimal.NewFromInt(int64(set.Quantity())))
	case CalculatorPerOrder:
		amount = c.PreferredAmount.Mul(decimal.NewFromInt(int64(set.OrderCount())))
	case CalculatorFlatPercent:
		amount = set.Subtotal().Mul(c.PreferredPercent).Div(decimal.NewFromInt(100))
	case CalculatorFlatRate:
		amount = c.PreferredAmount
	}
	return RoundMoney(amount), nil
}

// TargetKind tags which variant of Target is populated.
type TargetKind int

const (
	TargetOther TargetKind = iota
	TargetLineItem
	TargetOrder
)

// Target is what a calculator prices: one line item, a whole order, or anything else.
// The zero value is an empty TargetOther.
type Target struct {
	kind     TargetKind
	lineItem LineItem
	order    *Order
	other    any
}

// LineItemTarget targets a single line item.
func LineItemTarget(li LineItem) Target {
	return Target{kind: TargetLineItem, lineItem: li}
}

// OrderTarget targets the order's current line item collection.
func OrderTarget(o *Order) Target {
	return Target{kind: TargetOrder, order: o}
}

// OtherTarget wraps a value that is neither a line item nor an order.
//
// Resolution passes such a value through untouched as a one-element item set, which
// is how the fee framework has always behaved. It is kept for callers that resolve
// items themselves; Compute refuses it because no money semantics apply.
// TODO: drop the pass-through once no caller resolves non-order targets.
func OtherTarget(v any) Target {
	return Target{kind: TargetOther, other: v}
}

// Kind reports which variant the target holds.
func (t Target) Kind() TargetKind {
	return t.kind
}

// ItemSet is a resolved target. Exactly one of LineItems or Raw is meaningful:
// Raw is only set for TargetOther and holds the original value.
type ItemSet struct {
	LineItems []LineItem
	Raw       []any
}

// LineItemsFor resolves a target into the items a strategy operates on.
func LineItemsFor(t Target) ItemSet {
	switch t.kind {
	case TargetLineItem:
		return ItemSet{LineItems: []LineItem{t.lineItem}}
	case TargetOrder:
		if t.order == nil {
			return ItemSet{LineItems: []LineItem{}}
		}
		items := make([]LineItem, len(t.order.LineItems))
		copy(items, t.order.LineItems)
		return ItemSet{LineItems: items}
	default:
		return ItemSet{Raw: []any{t.other}}
	}
}

// Quantity is the total number of units.
func (s ItemSet) Quantity() int {
	n := 0
	for _, li := range s.LineItems {
		n += li.Quantity
	}
	return n
}

// OrderCount is the number of distinct orders the items belong to.
func (s ItemSet) OrderCount() int {
	seen := make(map[int64]struct{}, 1)
	for _, li := range s.LineItems {
		seen[li.OrderID] = struct{}{}
	}
	return len(seen)
}

// Subtotal is the sum of price × quantity.
func (s ItemSet) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.LineItems {
		total = total.Add(li.Amount())
	}
	return total
}
