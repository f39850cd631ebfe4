// Package trade implements the order saga: creation reserves stock across
// the item service, a delayed check resolves every order to paid or
// cancelled exactly once, and compensations (stock restore, pay close) are
// tracked in an explicit step log instead of a distributed transaction.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/tradeflow/internal/domain"
	"github.com/joao-fontenele/tradeflow/internal/usercontext"
)

// OrderStore is the local persistence the coordinator owns. All status
// transitions are conditional single-row updates keyed by order id.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	MarkPaid(ctx context.Context, id string, payTime time.Time) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	Status(ctx context.Context, id string) (domain.OrderStatus, error)
	DeleteCreated(ctx context.Context, id string) error
	ClaimStep(ctx context.Context, orderID, step string) (bool, error)
	HasStep(ctx context.Context, orderID, step string) (bool, error)
	ReleaseStep(ctx context.Context, orderID, step string) error
}

// ItemService is the stock-owning collaborator.
type ItemService interface {
	QueryByIDs(ctx context.Context, ids []string) ([]domain.Item, error)
	Deduct(ctx context.Context, lines []domain.StockLine) error
	Restore(ctx context.Context, lines []domain.StockLine) error
}

// PayService owns payment records; its query result is the source of truth
// for whether the buyer paid.
type PayService interface {
	QueryByBizOrderID(ctx context.Context, orderID string) (*domain.PayOrder, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.PayStatus) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type CheckScheduler interface {
	Schedule(ctx context.Context, orderID string) error
}

// OrderForm is the order-submission input.
type OrderForm struct {
	PaymentType int             `json:"paymentType"`
	Lines       []OrderFormLine `json:"lines"`
}

type OrderFormLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type Coordinator struct {
	store  OrderStore
	items  ItemService
	pay    PayService
	events EventPublisher
	checks CheckScheduler
	logger *slog.Logger

	ordersCreated   metric.Int64Counter
	ordersPaid      metric.Int64Counter
	ordersCancelled metric.Int64Counter
}

func NewCoordinator(store OrderStore, items ItemService, pay PayService, events EventPublisher, checks CheckScheduler, logger *slog.Logger) (*Coordinator, error) {
	meter := otel.Meter("trade")

	created, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders successfully created"))
	if err != nil {
		return nil, err
	}
	paid, err := meter.Int64Counter("orders_paid_total",
		metric.WithDescription("Orders transitioned to paid"))
	if err != nil {
		return nil, err
	}
	cancelled, err := meter.Int64Counter("orders_cancelled_total",
		metric.WithDescription("Orders transitioned to cancelled"))
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		store:           store,
		items:           items,
		pay:             pay,
		events:          events,
		checks:          checks,
		logger:          logger,
		ordersCreated:   created,
		ordersPaid:      paid,
		ordersCancelled: cancelled,
	}, nil
}

// CreateOrder runs the creation saga: snapshot items, persist the order
// and its lines locally, deduct stock remotely, then announce the order
// and schedule its payment-timeout check. A failed deduction rolls the
// local rows back so no order survives it.
func (c *Coordinator) CreateOrder(ctx context.Context, form OrderForm) (string, error) {
	quantities, itemIDs, err := aggregateLines(form.Lines)
	if err != nil {
		return "", err
	}

	items, err := c.items.QueryByIDs(ctx, itemIDs)
	if err != nil {
		return "", fmt.Errorf("query items: %w", err)
	}
	if len(items) < len(itemIDs) {
		return "", fmt.Errorf("%w: requested %d items, found %d", domain.ErrItemNotFound, len(itemIDs), len(items))
	}

	userID, _ := usercontext.UserID(ctx)

	order := &domain.Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		PaymentType: form.PaymentType,
		CreateTime:  time.Now().UTC(),
	}
	for _, item := range items {
		qty := quantities[item.ID]
		order.TotalFee += item.Price * int64(qty)
		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:   item.ID,
			Name:     item.Name,
			Spec:     item.Spec,
			Price:    item.Price,
			Image:    item.Image,
			Quantity: qty,
		})
	}

	if err := c.store.Create(ctx, order); err != nil {
		return "", fmt.Errorf("persist order: %w", err)
	}

	if err := c.items.Deduct(ctx, stockLines(order.Lines)); err != nil {
		if rollbackErr := c.store.DeleteCreated(ctx, order.ID); rollbackErr != nil {
			c.logger.Error("failed to roll back order after deduct failure", "error", rollbackErr, "order_id", order.ID)
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInsufficientStock, err)
	}

	if _, err := c.store.ClaimStep(ctx, order.ID, stepStockDeducted); err != nil {
		c.logger.Error("failed to record deduction step", "error", err, "order_id", order.ID)
	}

	// The order is durably committed from here on: announcement and
	// scheduling failures are logged, never surfaced, and the delayed
	// check covers reconciliation for a lost event.
	if err := c.events.Publish(ctx, order.ID, itemIDs); err != nil {
		c.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
	if err := c.checks.Schedule(ctx, order.ID); err != nil {
		c.logger.Error("failed to schedule delayed check", "error", err, "order_id", order.ID)
	}

	c.ordersCreated.Add(ctx, 1)
	c.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total_fee", order.TotalFee)
	return order.ID, nil
}

// GetOrder loads an order with its lines; nil means unknown id.
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.store.GetByID(ctx, orderID)
}

// MarkPaid records the payment confirmation. Safe under redelivery: a
// repeat call or a confirmation for an already-resolved order is dropped.
func (c *Coordinator) MarkPaid(ctx context.Context, orderID string) error {
	transitioned, err := c.store.MarkPaid(ctx, orderID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if transitioned {
		c.ordersPaid.Add(ctx, 1)
		c.logger.Info("order paid", "order_id", orderID)
		return nil
	}

	status, err := c.store.Status(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.logger.Warn("payment confirmed for unknown order", "order_id", orderID)
			return nil
		}
		return fmt.Errorf("load order status: %w", err)
	}

	if status != domain.OrderStatusPaid {
		// The cancellation path won the race. Stock has been restored and
		// the pay record closed; the payment needs manual reconciliation.
		c.logger.Warn("payment confirmed for closed order", "order_id", orderID, "status", int(status))
	}
	return nil
}

// HandleDelayedCheck resolves an order after its payment window elapsed.
// Paid orders (or orders the paid event already resolved) are left alone;
// an unpaid pending order is cancelled. For an order whose cancellation
// started but failed mid-way, the remaining compensations are completed.
func (c *Coordinator) HandleDelayedCheck(ctx context.Context, orderID string) error {
	order, err := c.store.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		c.logger.Warn("delayed check for unknown order", "order_id", orderID)
		return nil
	}

	switch order.Status {
	case domain.OrderStatusPaid:
		return nil
	case domain.OrderStatusCancelled, domain.OrderStatusClosedByOther:
		return c.completeCancellation(ctx, orderID)
	}

	record, err := c.pay.QueryByBizOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("query pay record: %w", err)
	}
	if record != nil && record.Status == domain.PayStatusTradeSuccess {
		// The paid event was lost; reconcile from the pay service's record.
		return c.MarkPaid(ctx, orderID)
	}

	return c.CancelOrder(ctx, orderID)
}

// CancelOrder transitions the order to cancelled and runs the compensating
// actions: close the pay record and restore the deducted stock. If any
// required step fails the error propagates and the cancellation is retried;
// the step log keeps each compensation from running twice.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID string) error {
	transitioned, err := c.store.Cancel(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if !transitioned {
		status, err := c.store.Status(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order status: %w", err)
		}
		switch status {
		case domain.OrderStatusPaid:
			return domain.ErrOrderAlreadyPaid
		case domain.OrderStatusCancelled, domain.OrderStatusClosedByOther:
			return c.completeCancellation(ctx, orderID)
		default:
			return fmt.Errorf("order %s in unexpected status %d", orderID, status)
		}
	}

	c.ordersCancelled.Add(ctx, 1)
	c.logger.Info("order cancelled", "order_id", orderID)
	return c.completeCancellation(ctx, orderID)
}

// completeCancellation runs the compensations still owed for a cancelled
// order. Each one is claimed in the step log first, so a redelivered check
// only re-runs what a previous attempt left unfinished.
func (c *Coordinator) completeCancellation(ctx context.Context, orderID string) error {
	claimed, err := c.store.ClaimStep(ctx, orderID, stepPayClosed)
	if err != nil {
		return fmt.Errorf("claim pay close step: %w", err)
	}
	if claimed {
		if err := c.pay.UpdateStatus(ctx, orderID, domain.PayStatusTradeClosed); err != nil {
			if releaseErr := c.store.ReleaseStep(ctx, orderID, stepPayClosed); releaseErr != nil {
				c.logger.Error("failed to release pay close step", "error", releaseErr, "order_id", orderID)
			}
			return fmt.Errorf("close pay record: %w", err)
		}
	}

	// Only stock that was actually deducted gets restored: an order whose
	// creation saga died before the deduction step owes nothing back.
	deducted, err := c.store.HasStep(ctx, orderID, stepStockDeducted)
	if err != nil {
		return fmt.Errorf("check deduction step: %w", err)
	}
	if !deducted {
		return nil
	}

	lines, err := c.store.ListLines(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	claimed, err = c.store.ClaimStep(ctx, orderID, stepStockRestored)
	if err != nil {
		return fmt.Errorf("claim stock restore step: %w", err)
	}
	if claimed {
		if err := c.items.Restore(ctx, stockLines(lines)); err != nil {
			if releaseErr := c.store.ReleaseStep(ctx, orderID, stepStockRestored); releaseErr != nil {
				c.logger.Error("failed to release stock restore step", "error", releaseErr, "order_id", orderID)
			}
			return fmt.Errorf("restore stock: %w", err)
		}
		c.logger.Info("stock restored", "order_id", orderID, "lines", len(lines))
	}

	return nil
}

// HandlePaySuccess adapts a pay.success delivery, whose payload is the
// order id, to MarkPaid.
func (c *Coordinator) HandlePaySuccess(ctx context.Context, payload []byte) error {
	var orderID string
	if err := json.Unmarshal(payload, &orderID); err != nil {
		orderID = strings.TrimSpace(string(payload))
	}
	if orderID == "" {
		c.logger.Error("pay success event without order id dropped")
		return nil
	}
	return c.MarkPaid(ctx, orderID)
}

func aggregateLines(lines []OrderFormLine) (map[string]int, []string, error) {
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w: no order lines", domain.ErrInvalidOrder)
	}

	quantities := make(map[string]int, len(lines))
	var ids []string
	for _, line := range lines {
		if line.ItemID == "" {
			return nil, nil, fmt.Errorf("%w: missing item id", domain.ErrInvalidOrder)
		}
		if line.Quantity < 1 {
			return nil, nil, fmt.Errorf("%w: quantity must be at least 1 for item %s", domain.ErrInvalidOrder, line.ItemID)
		}
		if _, seen := quantities[line.ItemID]; !seen {
			ids = append(ids, line.ItemID)
		}
		quantities[line.ItemID] += line.Quantity
	}
	return quantities, ids, nil
}

func stockLines(lines []domain.OrderLine) []domain.StockLine {
	out := make([]domain.StockLine, len(lines))
	for i, line := range lines {
		out[i] = domain.StockLine{ItemID: line.ItemID, Quantity: line.Quantity}
	}
	return out
}
