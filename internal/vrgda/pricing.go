package vrgda

import "math"

// PricingEngine evaluates the variable-rate gradual dutch auction price
// curve. All methods are pure float math over the same parameters the
// on-chain program stores; quotes are estimates and the program's
// fixed-point evaluation is the settlement source of truth.
type PricingEngine struct{}

// PricingParams are the curve parameters of a linear-schedule auction.
type PricingParams struct {
	// TargetPrice is the price, in SOL, the curve passes through when
	// sales track the schedule exactly.
	TargetPrice float64
	// DecayConstant is the per-unit-time price decay k, 0 < k < 1.
	DecayConstant float64
	// UnitsPerPeriod is the linear schedule rate r (tokens per unit time).
	UnitsPerPeriod float64
	// ReservePrice is the floor, in SOL, below which Price never quotes.
	ReservePrice float64
}

// Price returns the price of the next token given the time passed since
// the auction started and the number of tokens already sold. The result
// is floored at the reserve price and never negative.
func (PricingEngine) Price(timePassed, sold float64, p PricingParams) float64 {
	exponent := timePassed - (sold+1)/p.UnitsPerPeriod
	price := p.TargetPrice * math.Pow(1-p.DecayConstant, exponent)
	if price < p.ReservePrice {
		price = p.ReservePrice
	}
	if price < 0 {
		price = 0
	}
	return price
}

// CostForAmount returns the total cost of buying amount tokens in one
// purchase, using the closed-form geometric sum over per-token prices.
// The reserve floor does not apply to bulk pricing; the program charges
// the raw curve for multi-token buys.
func (PricingEngine) CostForAmount(timePassed, sold, amount float64, p PricingParams) float64 {
	if amount <= 0 {
		return 0
	}

	// The first token of a fresh auction is priced at the schedule head
	// rather than index 1.
	nextIndex := sold + 1
	if sold == 0 {
		nextIndex = math.Min(amount, p.UnitsPerPeriod)
	}

	nextPrice := p.TargetPrice * math.Pow(1-p.DecayConstant, timePassed-nextIndex/p.UnitsPerPeriod)

	// Per-token prices form a geometric progression with ratio q.
	q := math.Pow(1-p.DecayConstant, -1/p.UnitsPerPeriod)

	var total float64
	if math.Abs(q-1) < 1e-10 {
		total = amount * nextPrice
	} else {
		total = nextPrice * (math.Pow(q, amount) - 1) / (q - 1)
	}

	if total < 0 {
		total = 0
	}
	return total
}
