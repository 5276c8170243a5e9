package contracts

import "time"

// PricePoint is one daily close
type PricePoint struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
}

// PriceTable is a cleaned dates × tickers close matrix with no gaps.
// Closes[i][j] is the close of Tickers[j] on Dates[i].
type PriceTable struct {
	Dates   []time.Time
	Tickers []string
	Closes  [][]float64
}

// Empty reports whether the table has no usable data
func (t *PriceTable) Empty() bool {
	return t == nil || len(t.Dates) == 0 || len(t.Tickers) == 0
}

// Rows returns the number of dates
func (t *PriceTable) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// Index returns the column index of a ticker, -1 when absent
func (t *PriceTable) Index(ticker string) int {
	for j, x := range t.Tickers {
		if x == ticker {
			return j
		}
	}
	return -1
}

// Has reports whether the table carries a ticker
func (t *PriceTable) Has(ticker string) bool {
	return t.Index(ticker) >= 0
}

// Column returns the close series of a ticker
func (t *PriceTable) Column(ticker string) ([]float64, bool) {
	j := t.Index(ticker)
	if j < 0 {
		return nil, false
	}
	col := make([]float64, len(t.Dates))
	for i := range t.Dates {
		col[i] = t.Closes[i][j]
	}
	return col, true
}

// Select returns a new table restricted to the given tickers, in the given order.
// Unknown tickers are ignored.
func (t *PriceTable) Select(tickers []string) *PriceTable {
	idx := make([]int, 0, len(tickers))
	kept := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		if j := t.Index(ticker); j >= 0 {
			idx = append(idx, j)
			kept = append(kept, ticker)
		}
	}

	out := &PriceTable{
		Dates:   append([]time.Time(nil), t.Dates...),
		Tickers: kept,
		Closes:  make([][]float64, len(t.Dates)),
	}
	for i, row := range t.Closes {
		r := make([]float64, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		out.Closes[i] = r
	}
	return out
}
