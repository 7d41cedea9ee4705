package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxConfig holds the store-wide tax settings applied during recalculation.
type TaxConfig struct {
	// ShipmentIncVAT means shipping fees already include tax at ShippingTaxRate.
	ShipmentIncVAT  bool
	ShippingTaxRate decimal.Decimal // fraction, e.g. 0.25 for 25 %
}

// Validate rejects a negative shipping tax rate.
func (c TaxConfig) Validate() error {
	if c.ShippingTaxRate.IsNegative() {
		return fmt.Errorf("%w: shipping tax rate %s is negative", ErrInvalidTaxRate, c.ShippingTaxRate)
	}
	return nil
}

// TaxComponents splits a gross amount into its net part and the tax it contains.
type TaxComponents struct {
	Net         decimal.Decimal
	IncludedTax decimal.Decimal
}

// DecomposeTax splits gross into net and included tax.
//
// When inclusive is false the amount carries no tax. Otherwise
// tax = gross × rate / (1 + rate), rounded once to the currency unit half to even,
// and net = gross − tax, so Net + IncludedTax always equals gross exactly.
func DecomposeTax(gross, rate decimal.Decimal, inclusive bool) (TaxComponents, error) {
	if !inclusive {
		return TaxComponents{Net: gross, IncludedTax: decimal.Zero}, nil
	}
	if rate.IsNegative() {
		return TaxComponents{}, fmt.Errorf("%w: %s is negative", ErrInvalidTaxRate, rate)
	}

	tax := RoundMoney(gross.Mul(rate).Div(decimal.NewFromInt(1).Add(rate)))
	return TaxComponents{Net: gross.Sub(tax), IncludedTax: tax}, nil
}
