package tinvest

import (
	"encoding/json"
	"time"
)

// Quotation is the gateway's fixed-point number: units + nano/1e9.
// units arrives as a JSON string (int64), nano as a number.
type Quotation struct {
	Currency string      `json:"currency,omitempty"`
	Units    json.Number `json:"units"`
	Nano     int64       `json:"nano"`
}

// Float converts the quotation to float64
func (q Quotation) Float() float64 {
	units, _ := q.Units.Int64()
	return float64(units) + float64(q.Nano)/1e9
}

// IsZero reports whether the quotation carries no value
func (q Quotation) IsZero() bool {
	return q.Float() == 0
}

// Instrument is the subset of instrument metadata the service uses
type Instrument struct {
	Figi      string `json:"figi"`
	UID       string `json:"uid"`
	AssetUID  string `json:"assetUid"`
	Ticker    string `json:"ticker"`
	ClassCode string `json:"classCode"`
	Currency  string `json:"currency"`
	Name      string `json:"name"`
	Lot       int    `json:"lot"`
}

// Consensus is an analyst consensus forecast
type Consensus struct {
	UID            string    `json:"uid"`
	Ticker         string    `json:"ticker"`
	Recommendation string    `json:"recommendation"`
	Currency       string    `json:"currency"`
	CurrentPrice   Quotation `json:"currentPrice"`
	Consensus      Quotation `json:"consensus"`
	MinTarget      Quotation `json:"minTarget"`
	MaxTarget      Quotation `json:"maxTarget"`
	PriceChange    Quotation `json:"priceChange"`
	PriceChangeRel Quotation `json:"priceChangeRel"` // percent
}

// Candle is one OHLC bar
type Candle struct {
	Open       Quotation `json:"open"`
	High       Quotation `json:"high"`
	Low        Quotation `json:"low"`
	Close      Quotation `json:"close"`
	Volume     string    `json:"volume"`
	Time       time.Time `json:"time"`
	IsComplete bool      `json:"isComplete"`
}

// LastPrice is the latest trade price of an instrument
type LastPrice struct {
	Figi          string    `json:"figi"`
	InstrumentUID string    `json:"instrumentUid"`
	Price         Quotation `json:"price"`
	Time          time.Time `json:"time"`
}
