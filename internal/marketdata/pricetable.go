package marketdata

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// BuildPriceTable pivots daily closes into a dates × tickers table.
// Columns follow tickers (all tickers in points, sorted, when nil). Gaps are
// forward filled, columns without any close are dropped, then every row still
// holding a gap is dropped.
func BuildPriceTable(points []contracts.PricePoint, tickers []string) *contracts.PriceTable {
	if tickers == nil {
		tickers = tickersOf(points)
	}

	col := make(map[string]int, len(tickers))
	for j, t := range tickers {
		if _, dup := col[t]; !dup {
			col[t] = j
		}
	}

	dates := make([]time.Time, 0)
	row := make(map[time.Time]int)
	for _, p := range points {
		if _, ok := col[p.Ticker]; !ok {
			continue
		}
		d := day(p.Date)
		if _, ok := row[d]; !ok {
			row[d] = 0
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		row[d] = i
	}

	grid := make([][]float64, len(dates))
	for i := range grid {
		grid[i] = make([]float64, len(tickers))
		for j := range grid[i] {
			grid[i][j] = math.NaN()
		}
	}
	for _, p := range points {
		j, ok := col[p.Ticker]
		if !ok || p.Close <= 0 || math.IsNaN(p.Close) {
			continue
		}
		grid[row[day(p.Date)]][j] = p.Close
	}

	forwardFill(grid)

	// drop all-empty columns
	keep := make([]int, 0, len(tickers))
	for j := range tickers {
		if _, ok := col[tickers[j]]; !ok || col[tickers[j]] != j {
			continue
		}
		for i := range grid {
			if !math.IsNaN(grid[i][j]) {
				keep = append(keep, j)
				break
			}
		}
	}

	table := &contracts.PriceTable{
		Dates:   make([]time.Time, 0, len(dates)),
		Tickers: make([]string, 0, len(keep)),
		Closes:  make([][]float64, 0, len(dates)),
	}
	for _, j := range keep {
		table.Tickers = append(table.Tickers, tickers[j])
	}

rows:
	for i, d := range dates {
		r := make([]float64, len(keep))
		for k, j := range keep {
			if math.IsNaN(grid[i][j]) {
				continue rows
			}
			r[k] = grid[i][j]
		}
		table.Dates = append(table.Dates, d)
		table.Closes = append(table.Closes, r)
	}
	return table
}

func forwardFill(grid [][]float64) {
	for i := 1; i < len(grid); i++ {
		for j := range grid[i] {
			if math.IsNaN(grid[i][j]) {
				grid[i][j] = grid[i-1][j]
			}
		}
	}
}

func tickersOf(points []contracts.PricePoint) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range points {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	sort.Strings(out)
	return out
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
