package api

import (
	"time"

	"github.com/rickgao/deribit-data/internal/model"
)

// MillisToMicro converts a Deribit millisecond timestamp to microseconds.
// Zero stays zero.
func MillisToMicro(ms int64) int64 {
	return ms * 1000
}

// NowMicro returns the current time in microseconds since epoch.
func NowMicro() int64 {
	return time.Now().UnixMicro()
}

// ToModel converts an APITicker to model.Ticker.
func (t *APITicker) ToModel(receivedAt int64) model.Ticker {
	m := model.Ticker{
		InstrumentName:         t.InstrumentName,
		ExchangeTS:             MillisToMicro(t.Timestamp),
		ReceivedAt:             receivedAt,
		State:                  t.State,
		UnderlyingPrice:        t.UnderlyingPrice,
		UnderlyingIndex:        t.UnderlyingIndex,
		IndexPrice:             t.IndexPrice,
		EstimatedDeliveryPrice: t.EstimatedDeliveryPrice,
		SettlementPrice:        t.SettlementPrice,
		MarkPrice:              t.MarkPrice,
		MarkIV:                 t.MarkIV,
		LastPrice:              t.LastPrice,
		BestBidPrice:           t.BestBidPrice,
		BestBidAmount:          t.BestBidAmount,
		BestAskPrice:           t.BestAskPrice,
		BestAskAmount:          t.BestAskAmount,
		BidIV:                  t.BidIV,
		AskIV:                  t.AskIV,
		OpenInterest:           t.OpenInterest,
		InterestRate:           t.InterestRate,
	}
	if t.Greeks != nil {
		m.Greeks = &model.Greeks{
			Delta: t.Greeks.Delta,
			Gamma: t.Greeks.Gamma,
			Theta: t.Greeks.Theta,
			Vega:  t.Greeks.Vega,
			Rho:   t.Greeks.Rho,
		}
	}
	return m
}

// ToModel converts an APIIndexPrice to model.IndexPrice.
func (p *APIIndexPrice) ToModel(indexName string, receivedAt int64) model.IndexPrice {
	return model.IndexPrice{
		IndexName:              indexName,
		Price:                  p.IndexPrice,
		EstimatedDeliveryPrice: p.EstimatedDeliveryPrice,
		ReceivedAt:             receivedAt,
	}
}

// ToModel converts an APIInstrument to model.Instrument.
func (i *APIInstrument) ToModel() model.Instrument {
	return model.Instrument{
		Name:                 i.InstrumentName,
		ID:                   i.InstrumentID,
		Kind:                 i.Kind,
		OptionType:           i.OptionType,
		BaseCurrency:         i.BaseCurrency,
		QuoteCurrency:        i.QuoteCurrency,
		CounterCurrency:      i.CounterCurrency,
		SettlementCurrency:   i.SettlementCurrency,
		SettlementPeriod:     i.SettlementPeriod,
		PriceIndex:           i.PriceIndex,
		IsActive:             i.IsActive,
		Strike:               i.Strike,
		ContractSize:         i.ContractSize,
		TickSize:             i.TickSize,
		MinTradeAmount:       i.MinTradeAmount,
		MakerCommission:      i.MakerCommission,
		TakerCommission:      i.TakerCommission,
		BlockTradeCommission: i.BlockTradeCommission,
		Leverage:             i.Leverage,
		CreatedTS:            MillisToMicro(i.CreationTimestamp),
		ExpirationTS:         MillisToMicro(i.ExpirationTimestamp),
	}
}
