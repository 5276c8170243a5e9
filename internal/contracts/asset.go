package contracts

import "strings"

// AssetKind distinguishes lot-traded equities from fractional crypto
type AssetKind string

const (
	KindEquity AssetKind = "stock"
	KindCrypto AssetKind = "crypto"
)

// Currency of a quoted price
type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
)

const (
	// CryptoSector is the pseudo-sector holding crypto assets
	CryptoSector = "Crypto"

	// CryptoSuffix marks a crypto identifier (BTC-USD)
	CryptoSuffix = "-USD"

	// DefaultBeta is substituted when an equity's beta is unknown; crypto always uses it
	DefaultBeta = 1.0

	// DefaultLotSize is substituted when an equity's lot size is unknown; crypto always uses it
	DefaultLotSize = 1
)

// KindOf classifies an identifier by the crypto suffix marker
func KindOf(ticker string) AssetKind {
	if strings.Contains(ticker, CryptoSuffix) {
		return KindCrypto
	}
	return KindEquity
}

// Asset is one allocatable instrument with its current market metadata.
// Price is quoted in RUB for equities and in USD for crypto.
type Asset struct {
	Ticker  string    `json:"name"`
	Kind    AssetKind `json:"type"`
	Price   float64   `json:"price"`
	LotSize int       `json:"lot_size"`
	Beta    float64   `json:"beta"`
}

// NewEquity builds an equity asset quoted in RUB
func NewEquity(ticker string, priceRUB float64, lotSize int, beta float64) Asset {
	return Asset{Ticker: ticker, Kind: KindEquity, Price: priceRUB, LotSize: lotSize, Beta: beta}
}

// NewCrypto builds a crypto asset quoted in USD; beta is fixed at DefaultBeta
func NewCrypto(ticker string, priceUSD float64) Asset {
	return Asset{Ticker: ticker, Kind: KindCrypto, Price: priceUSD, LotSize: DefaultLotSize, Beta: DefaultBeta}
}

// IsCrypto reports whether the asset is bought in fractional units
func (a Asset) IsCrypto() bool {
	return a.Kind == KindCrypto
}

// Currency returns the quote currency of Price
func (a Asset) Currency() Currency {
	if a.IsCrypto() {
		return USD
	}
	return RUB
}

// PriceRUB normalizes the unit price to RUB using the USD/RUB rate
func (a Asset) PriceRUB(exchangeRate float64) float64 {
	if a.IsCrypto() {
		return a.Price * exchangeRate
	}
	return a.Price
}

// Lot returns the tradeable multiple; crypto and unknown lots are 1
func (a Asset) Lot() int {
	if a.IsCrypto() || a.LotSize < 1 {
		return DefaultLotSize
	}
	return a.LotSize
}

// Sectors maps a sector name to its assets in configuration order
type Sectors map[string][]Asset
