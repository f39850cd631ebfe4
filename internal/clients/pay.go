package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/joao-fontenele/tradeflow/internal/domain"
)

// PayClient talks to the pay service. Its fallback behavior is asymmetric
// from the item client's on purpose: a missed status push is recoverable
// at the next delayed check, a missed stock mutation is not.
type PayClient struct {
	rest   *resty.Client
	logger *slog.Logger
}

func NewPayClient(baseURL string, logger *slog.Logger) *PayClient {
	return &PayClient{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// QueryByBizOrderID returns the pay record for a business order, or nil if
// none exists. An unreachable pay service also yields nil so the saga
// treats the order as not yet paid.
func (c *PayClient) QueryByBizOrderID(ctx context.Context, orderID string) (*domain.PayOrder, error) {
	var record domain.PayOrder
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&record).
		Get("/pay-orders/biz/" + orderID)
	if err != nil {
		c.logger.Error("pay query failed, treating as unpaid", "error", err, "order_id", orderID)
		return nil, nil
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		c.logger.Error("pay query rejected, treating as unpaid", "status", resp.StatusCode(), "order_id", orderID)
		return nil, nil
	}
	return &record, nil
}

// UpdateStatus pushes a new pay status for the business order. An
// unreachable pay service is logged and tolerated; a rejection from a
// reachable one is an error the caller must handle.
func (c *PayClient) UpdateStatus(ctx context.Context, orderID string, status domain.PayStatus) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		Put(fmt.Sprintf("/pay-orders/biz/%s/%d", orderID, status))
	if err != nil {
		c.logger.Error("pay status update failed", "error", err, "order_id", orderID, "status", status)
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("%w: pay status update returned status %d", domain.ErrCollaboratorUnavailable, resp.StatusCode())
	}
	return nil
}
