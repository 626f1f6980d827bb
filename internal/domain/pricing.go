package domain

// PricingBreakdown captures the aggregated monetary results of pricing an order.
type PricingBreakdown struct {
	Subtotal         int64
	Tax              int64
	TaxRate          string
	Shipping         int64
	Total            int64
	TotalWeightGrams int
	Items            []ItemPricingBreakdown
}

// ItemPricingBreakdown stores the per-line pricing outputs after running the calculator.
type ItemPricingBreakdown struct {
	VariantID   string
	Quantity    int
	UnitPrice   int64
	Subtotal    int64
	WeightGrams int
}
