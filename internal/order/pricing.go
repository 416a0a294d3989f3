package order

import (
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/core/domain"
)

// ComputePricing derives the monetary snapshot for an item set. All
// values in cents. The result is frozen into the order; later price
// changes in the catalog never touch it.
func ComputePricing(
	items []domain.LineItem,
	cfg config.OrderConfig,
	discountCents, tipCents int64,
) domain.Pricing {
	var subtotal int64
	for _, li := range items {
		subtotal += li.UnitPriceCents * int64(li.Quantity)
	}

	if discountCents > subtotal {
		discountCents = subtotal
	}

	// Tax applies to the discounted subtotal, rounded half-up.
	taxable := subtotal - discountCents
	tax := (taxable*int64(cfg.TaxRateBps) + 5000) / 10000

	p := domain.Pricing{
		SubtotalCents:    subtotal,
		TaxCents:         tax,
		DeliveryFeeCents: cfg.DeliveryFeeCents,
		DiscountCents:    discountCents,
		TipCents:         tipCents,
	}
	p.TotalCents = p.SubtotalCents - p.DiscountCents + p.TaxCents + p.DeliveryFeeCents + p.TipCents
	return p
}
