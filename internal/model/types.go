package model

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// Reference Data
// -----------------------------------------------------------------------------

// Instrument kinds accepted by public/get_instruments.
const (
	KindFuture = "future"
	KindOption = "option"
	KindSpot   = "spot"
)

// Instrument describes a tradeable Deribit contract.
type Instrument struct {
	Name               string // Primary key (e.g., "BTC-27DEC24-60000-P")
	ID                 int64  // Exchange-assigned numeric id
	Kind               string // future, option, spot, ...
	OptionType         string // "call" or "put"; empty for non-options
	BaseCurrency       string // e.g., "BTC"
	QuoteCurrency      string // e.g., "USD"
	CounterCurrency    string
	SettlementCurrency string
	SettlementPeriod   string // day, week, month, perpetual
	PriceIndex         string // e.g., "btc_usd"
	IsActive           bool

	Strike               decimal.Decimal
	ContractSize         decimal.Decimal
	TickSize             decimal.Decimal
	MinTradeAmount       decimal.Decimal
	MakerCommission      decimal.Decimal
	TakerCommission      decimal.Decimal
	BlockTradeCommission decimal.Decimal
	Leverage             decimal.Decimal

	CreatedTS    int64 // Creation time (µs since epoch)
	ExpirationTS int64 // Expiration time (µs since epoch)
}

// IsOption reports whether the instrument is an option.
func (i Instrument) IsOption() bool {
	return i.Kind == KindOption
}

// -----------------------------------------------------------------------------
// Market Data
// -----------------------------------------------------------------------------

// Greeks are the exchange-computed sensitivities attached to option tickers.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Ticker is a point-in-time snapshot from public/ticker.
type Ticker struct {
	InstrumentName string
	ExchangeTS     int64  // Deribit timestamp (µs since epoch)
	ReceivedAt     int64  // Local receive timestamp (µs since epoch)
	State          string // "open" or "closed"

	UnderlyingPrice        float64
	UnderlyingIndex        string
	IndexPrice             float64
	EstimatedDeliveryPrice float64
	SettlementPrice        float64

	MarkPrice float64
	MarkIV    float64 // Percent, e.g. 65.3
	LastPrice float64

	BestBidPrice  float64
	BestBidAmount float64
	BestAskPrice  float64
	BestAskAmount float64
	BidIV         float64
	AskIV         float64

	OpenInterest float64
	InterestRate float64

	Greeks *Greeks // nil for non-options
}

// MarkSigma returns the mark implied volatility as a fraction.
func (t Ticker) MarkSigma() float64 {
	return t.MarkIV / 100
}

// IndexPrice is the reply of public/get_index_price.
type IndexPrice struct {
	IndexName              string
	Price                  float64
	EstimatedDeliveryPrice float64
	ReceivedAt             int64 // µs since epoch
}

// IVPoint is one sample of at-the-money implied volatility history.
type IVPoint struct {
	CreatedTS int64 // µs since epoch
	Month1    decimal.Decimal
	Month3    decimal.Decimal
	Month6    decimal.Decimal
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// TickerSnapshot is a row of the ticker_snapshots hypertable.
type TickerSnapshot struct {
	ExchangeTS      int64  // Deribit timestamp (µs since epoch)
	ReceivedAt      int64  // Local receive timestamp (µs since epoch)
	InstrumentName  string // Instrument
	UnderlyingPrice float64
	IndexPrice      float64
	MarkPrice       float64
	MarkIV          float64
	BestBidPrice    float64
	BestAskPrice    float64
	LastPrice       float64
	OpenInterest    float64
	Delta           *float64 // nil for non-options
	Gamma           *float64
	Vega            *float64
}

// SnapshotFromTicker flattens a ticker into a storable row.
func SnapshotFromTicker(t Ticker) TickerSnapshot {
	s := TickerSnapshot{
		ExchangeTS:      t.ExchangeTS,
		ReceivedAt:      t.ReceivedAt,
		InstrumentName:  t.InstrumentName,
		UnderlyingPrice: t.UnderlyingPrice,
		IndexPrice:      t.IndexPrice,
		MarkPrice:       t.MarkPrice,
		MarkIV:          t.MarkIV,
		BestBidPrice:    t.BestBidPrice,
		BestAskPrice:    t.BestAskPrice,
		LastPrice:       t.LastPrice,
		OpenInterest:    t.OpenInterest,
	}
	if t.Greeks != nil {
		g := *t.Greeks
		s.Delta = &g.Delta
		s.Gamma = &g.Gamma
		s.Vega = &g.Vega
	}
	return s
}
