package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/sectorfolio/internal/contracts"
	"github.com/wonny/sectorfolio/pkg/logger"
)

const (
	// DefaultLookbackDays is the comparison window
	DefaultLookbackDays = 365

	// DefaultWorkers bounds concurrent series downloads
	DefaultWorkers = 5

	// indexBase is the value every normalized series starts at
	indexBase = 100.0
)

// SeriesSource serves daily closes by ticker
type SeriesSource interface {
	DailyCloses(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PricePoint, error)
}

// Comparison is a sector index aligned with a crypto series
type Comparison struct {
	Sector       string    `json:"-"`
	Crypto       string    `json:"-"`
	Dates        []string  `json:"dates"`
	SectorValues []float64 `json:"sector_values"`
	CryptoValues []float64 `json:"crypto_values"`
	Correlation  float64   `json:"correlation"`
}

// Comparator correlates an equally weighted sector index with a crypto pair
// ⭐ SSOT: sector vs crypto correlation lives here only
type Comparator struct {
	compare contracts.CompareSpec
	source  SeriesSource
	logger  *logger.Logger
	workers int
	days    int
	now     func() time.Time
}

// NewComparator creates a comparator over the universe's compare section
func NewComparator(u *contracts.Universe, source SeriesSource, log *logger.Logger) *Comparator {
	return &Comparator{
		compare: u.Compare,
		source:  source,
		logger:  log.WithComponent("correlation"),
		workers: DefaultWorkers,
		days:    DefaultLookbackDays,
		now:     time.Now,
	}
}

// Compare builds the sector index (mean of constituents normalized to 100 at
// their first close), normalizes the crypto series the same way, keeps the
// common dates and computes the Pearson correlation. An undefined correlation
// is reported as 0.
func (c *Comparator) Compare(ctx context.Context, sector, crypto string) (*Comparison, error) {
	tickers, ok := c.compare.Sectors[sector]
	if !ok {
		return nil, fmt.Errorf("compare %q: %w", sector, contracts.ErrUnknownSector)
	}
	pair, ok := c.compare.Crypto[crypto]
	if !ok {
		return nil, fmt.Errorf("compare crypto %q: %w", crypto, contracts.ErrUnknownAsset)
	}

	to := c.now().UTC()
	from := to.AddDate(0, 0, -c.days)

	index := c.sectorIndex(ctx, tickers, from, to)
	cryptoPoints, err := c.source.DailyCloses(ctx, pair, from, to)
	if err != nil {
		c.logger.WithError(err).WithField("ticker", pair).Warn("Crypto series unavailable")
	}
	if len(index) == 0 || len(cryptoPoints) == 0 {
		return nil, fmt.Errorf("compare %s/%s: %w: insufficient data", sector, crypto, contracts.ErrDataUnavailable)
	}

	cryptoSeries := normalize(toSeries(cryptoPoints))
	dates := commonDates(index, cryptoSeries)
	if len(dates) == 0 {
		return nil, fmt.Errorf("compare %s/%s: %w: no common dates", sector, crypto, contracts.ErrDataUnavailable)
	}

	result := &Comparison{
		Sector:       sector,
		Crypto:       crypto,
		Dates:        make([]string, len(dates)),
		SectorValues: make([]float64, len(dates)),
		CryptoValues: make([]float64, len(dates)),
	}
	xs := make([]float64, len(dates))
	ys := make([]float64, len(dates))
	for i, d := range dates {
		xs[i], ys[i] = index[d], cryptoSeries[d]
		result.Dates[i] = d.Format("2006-01-02")
		result.SectorValues[i] = round(xs[i], 2)
		result.CryptoValues[i] = round(ys[i], 2)
	}

	corr := stat.Correlation(xs, ys, nil)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		corr = 0
	}
	result.Correlation = round(corr, 4)

	c.logger.WithFields(map[string]interface{}{
		"sector":      sector,
		"crypto":      pair,
		"points":      len(dates),
		"correlation": result.Correlation,
	}).Info("Correlation computed")
	return result, nil
}

type series map[time.Time]float64

// sectorIndex downloads every constituent with a bounded pool, outer joins on
// date and averages the normalized columns, skipping gaps
func (c *Comparator) sectorIndex(ctx context.Context, tickers []string, from, to time.Time) series {
	columns := make([]series, len(tickers))

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			points, err := c.source.DailyCloses(ctx, ticker, from, to)
			if err != nil {
				c.logger.WithError(err).WithField("ticker", ticker).Debug("Constituent series unavailable")
				return
			}
			columns[i] = toSeries(points)
		}(i, ticker)
	}
	wg.Wait()

	// outer join; all-empty columns drop out here
	all := make(map[time.Time]bool)
	kept := make([]series, 0, len(columns))
	for _, col := range columns {
		if len(col) == 0 {
			continue
		}
		kept = append(kept, col)
		for d := range col {
			all[d] = true
		}
	}
	if len(kept) == 0 {
		return nil
	}
	dates := sortedDates(all)

	// a constituent missing on the first joined date cannot be normalized
	first := dates[0]
	for i, col := range kept {
		base, ok := col[first]
		if !ok || base <= 0 {
			kept[i] = nil
			continue
		}
		norm := make(series, len(col))
		for d, v := range col {
			norm[d] = v / base * indexBase
		}
		kept[i] = norm
	}

	index := make(series, len(dates))
	for _, d := range dates {
		sum, n := 0.0, 0
		for _, col := range kept {
			if v, ok := col[d]; ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			index[d] = sum / float64(n)
		}
	}
	return index
}

func toSeries(points []contracts.PricePoint) series {
	s := make(series, len(points))
	for _, p := range points {
		t := p.Date.UTC()
		s[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)] = p.Close
	}
	return s
}

func normalize(s series) series {
	dates := sortedDates(keys(s))
	if len(dates) == 0 || s[dates[0]] <= 0 {
		return series{}
	}
	base := s[dates[0]]
	out := make(series, len(s))
	for d, v := range s {
		out[d] = v / base * indexBase
	}
	return out
}

func commonDates(a, b series) []time.Time {
	common := make(map[time.Time]bool)
	for d := range a {
		if _, ok := b[d]; ok {
			common[d] = true
		}
	}
	return sortedDates(common)
}

func keys(s series) map[time.Time]bool {
	out := make(map[time.Time]bool, len(s))
	for d := range s {
		out[d] = true
	}
	return out
}

func sortedDates(set map[time.Time]bool) []time.Time {
	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
