package contracts

// Weight is one asset's normalized share of the portfolio
type Weight struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"weight"`
}

// Weights is an ordered weight vector. Order is display priority only.
// ⭐ SSOT: WeightExtractor/ReturnOptimizer → PurchaseCalculator
type Weights []Weight

// Tickers returns the tickers in order
func (w Weights) Tickers() []string {
	out := make([]string, len(w))
	for i, x := range w {
		out[i] = x.Ticker
	}
	return out
}

// Values returns the weights in order
func (w Weights) Values() []float64 {
	out := make([]float64, len(w))
	for i, x := range w {
		out[i] = x.Value
	}
	return out
}

// Map returns the weights keyed by ticker
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64, len(w))
	for _, x := range w {
		out[x.Ticker] = x.Value
	}
	return out
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	total := 0.0
	for _, x := range w {
		total += x.Value
	}
	return total
}

// Get returns the weight for a ticker
func (w Weights) Get(ticker string) (float64, bool) {
	for _, x := range w {
		if x.Ticker == ticker {
			return x.Value, true
		}
	}
	return 0, false
}

// Empty reports whether no asset carries weight
func (w Weights) Empty() bool {
	return len(w) == 0
}
