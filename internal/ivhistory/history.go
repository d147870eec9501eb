package ivhistory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/deribit-data/internal/model"
)

// historyRequest is the POST body of /iv_history.
type historyRequest struct {
	Currency string `json:"currency"`
}

// historyResponse is the /iv_history envelope.
type historyResponse struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data []historyPoint `json:"data"`
}

type historyPoint struct {
	CreatedAt int64           `json:"created_at"` // ms since epoch
	Month1    decimal.Decimal `json:"month1"`
	Month3    decimal.Decimal `json:"month3"`
	Month6    decimal.Decimal `json:"month6"`
}

// GetIVHistory returns the ATM implied volatility history for currency,
// oldest first as served.
func (c *Client) GetIVHistory(ctx context.Context, currency string) ([]model.IVPoint, error) {
	currency = strings.ToUpper(currency)

	body, err := c.doRequest(ctx, "/iv_history", historyRequest{Currency: currency})
	if err != nil {
		return nil, fmt.Errorf("get iv history: %w", err)
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get iv history: unmarshal response: %w", err)
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("get iv history: %w", &APIError{
			StatusCode: http.StatusOK,
			Code:       resp.Code,
			Message:    resp.Msg,
			Body:       body,
		})
	}

	points := make([]model.IVPoint, len(resp.Data))
	for i, p := range resp.Data {
		points[i] = model.IVPoint{
			CreatedTS: p.CreatedAt * 1000,
			Month1:    p.Month1,
			Month3:    p.Month3,
			Month6:    p.Month6,
		}
	}

	c.logger.Debug("fetched iv history", "currency", currency, "points", len(points))

	return points, nil
}
