package api

import "github.com/shopspring/decimal"

// Deribit method names.
const (
	MethodTicker         = "public/ticker"
	MethodGetIndexPrice  = "public/get_index_price"
	MethodGetInstruments = "public/get_instruments"
)

// TickerParams for public/ticker.
type TickerParams struct {
	InstrumentName string `json:"instrument_name"`
}

// IndexPriceParams for public/get_index_price.
type IndexPriceParams struct {
	IndexName string `json:"index_name"`
}

// InstrumentsParams for public/get_instruments.
type InstrumentsParams struct {
	Currency string `json:"currency"`
	Kind     string `json:"kind,omitempty"`
	Expired  bool   `json:"expired"`
}

// APITicker is the result of public/ticker.
type APITicker struct {
	InstrumentName string `json:"instrument_name"`
	Timestamp      int64  `json:"timestamp"` // ms since epoch
	State          string `json:"state"`

	UnderlyingPrice        float64 `json:"underlying_price"`
	UnderlyingIndex        string  `json:"underlying_index"`
	IndexPrice             float64 `json:"index_price"`
	EstimatedDeliveryPrice float64 `json:"estimated_delivery_price"`
	SettlementPrice        float64 `json:"settlement_price"`

	MarkPrice float64 `json:"mark_price"`
	MarkIV    float64 `json:"mark_iv"`
	LastPrice float64 `json:"last_price"`

	BestBidPrice  float64 `json:"best_bid_price"`
	BestBidAmount float64 `json:"best_bid_amount"`
	BestAskPrice  float64 `json:"best_ask_price"`
	BestAskAmount float64 `json:"best_ask_amount"`
	BidIV         float64 `json:"bid_iv"`
	AskIV         float64 `json:"ask_iv"`

	OpenInterest float64 `json:"open_interest"`
	InterestRate float64 `json:"interest_rate"`

	Greeks *APIGreeks `json:"greeks,omitempty"`
}

// APIGreeks is the greeks object on option tickers.
type APIGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// APIIndexPrice is the result of public/get_index_price.
type APIIndexPrice struct {
	IndexPrice             float64 `json:"index_price"`
	EstimatedDeliveryPrice float64 `json:"estimated_delivery_price"`
}

// APIInstrument is one element of the public/get_instruments result.
type APIInstrument struct {
	InstrumentName      string `json:"instrument_name"`
	InstrumentID        int64  `json:"instrument_id"`
	Kind                string `json:"kind"`
	OptionType          string `json:"option_type"`
	FutureType          string `json:"future_type"`
	BaseCurrency        string `json:"base_currency"`
	QuoteCurrency       string `json:"quote_currency"`
	CounterCurrency     string `json:"counter_currency"`
	SettlementCurrency  string `json:"settlement_currency"`
	SettlementPeriod    string `json:"settlement_period"`
	PriceIndex          string `json:"price_index"`
	IsActive            bool   `json:"is_active"`
	CreationTimestamp   int64  `json:"creation_timestamp"`   // ms since epoch
	ExpirationTimestamp int64  `json:"expiration_timestamp"` // ms since epoch

	Strike               decimal.Decimal `json:"strike"`
	ContractSize         decimal.Decimal `json:"contract_size"`
	TickSize             decimal.Decimal `json:"tick_size"`
	MinTradeAmount       decimal.Decimal `json:"min_trade_amount"`
	MakerCommission      decimal.Decimal `json:"maker_commission"`
	TakerCommission      decimal.Decimal `json:"taker_commission"`
	BlockTradeCommission decimal.Decimal `json:"block_trade_commission"`
	Leverage             decimal.Decimal `json:"leverage"`
}
