package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/joao-fontenele/tradeflow/internal/domain"
)

// ItemClient talks to the item service, which owns the catalog and the
// stock counts. Reads degrade to an empty result when the service is
// unreachable; mutating calls never fail silently.
type ItemClient struct {
	rest   *resty.Client
	logger *slog.Logger
}

func NewItemClient(baseURL string, logger *slog.Logger) *ItemClient {
	return &ItemClient{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// QueryByIDs fetches item snapshots. The result may be smaller than the
// requested id set when some items are unknown; callers must detect that.
// An unreachable item service degrades to an empty result.
func (c *ItemClient) QueryByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	var items []domain.Item
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetResult(&items).
		Get("/items")
	if err != nil {
		c.logger.Error("item query failed, degrading to empty result", "error", err, "ids", ids)
		return nil, nil
	}
	if resp.IsError() {
		c.logger.Error("item query rejected, degrading to empty result", "status", resp.StatusCode(), "ids", ids)
		return nil, nil
	}
	return items, nil
}

// Deduct removes stock for every line, all or nothing on the item service
// side. A conflict means some line had insufficient stock.
func (c *ItemClient) Deduct(ctx context.Context, lines []domain.StockLine) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(lines).
		Put("/items/stock/deduct")
	if err != nil {
		return fmt.Errorf("%w: deduct stock: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return fmt.Errorf("%w: item service returned status %d", domain.ErrInsufficientStock, resp.StatusCode())
	}
	if resp.IsError() {
		return fmt.Errorf("%w: deduct stock returned status %d", domain.ErrCollaboratorUnavailable, resp.StatusCode())
	}
	return nil
}

// Restore puts deducted stock back. Failure is propagated: stock must not
// remain short-sold behind a swallowed error.
func (c *ItemClient) Restore(ctx context.Context, lines []domain.StockLine) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(lines).
		Put("/items/stock/restore")
	if err != nil {
		return fmt.Errorf("%w: restore stock: %v", domain.ErrCollaboratorUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: restore stock returned status %d", domain.ErrCollaboratorUnavailable, resp.StatusCode())
	}
	return nil
}
