package trade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/tradeflow/internal/domain"
	"github.com/joao-fontenele/tradeflow/internal/usercontext"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	steps  map[string]struct{}

	createErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[string]*domain.Order),
		steps:  make(map[string]struct{}),
	}
}

func (s *fakeStore) Create(_ context.Context, order *domain.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.orders[order.ID] = &copied
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	copied.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &copied, nil
}

func (s *fakeStore) ListLines(_ context.Context, orderID string) ([]domain.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	return append([]domain.OrderLine(nil), order.Lines...), nil
}

func (s *fakeStore) MarkPaid(_ context.Context, id string, payTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusPaid
	order.PayTime = &payTime
	return true, nil
}

func (s *fakeStore) Cancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusCancelled
	return true, nil
}

func (s *fakeStore) Status(_ context.Context, id string) (domain.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return 0, domain.ErrOrderNotFound
	}
	return order.Status, nil
}

func (s *fakeStore) DeleteCreated(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) ClaimStep(_ context.Context, orderID, step string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := orderID + "/" + step
	if _, taken := s.steps[key]; taken {
		return false, nil
	}
	s.steps[key] = struct{}{}
	return true, nil
}

func (s *fakeStore) HasStep(_ context.Context, orderID, step string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.steps[orderID+"/"+step]
	return ok, nil
}

func (s *fakeStore) ReleaseStep(_ context.Context, orderID, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.steps, orderID+"/"+step)
	return nil
}

type fakeItems struct {
	mu    sync.Mutex
	items []domain.Item

	queryCalls   int
	deductErr    error
	deductCalls  int
	deducted     [][]domain.StockLine
	restoreErr   error
	restoreCalls int
	restored     [][]domain.StockLine
}

func (f *fakeItems) QueryByIDs(_ context.Context, _ []string) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return f.items, nil
}

func (f *fakeItems) Deduct(_ context.Context, lines []domain.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deductCalls++
	if f.deductErr != nil {
		return f.deductErr
	}
	f.deducted = append(f.deducted, lines)
	return nil
}

func (f *fakeItems) Restore(_ context.Context, lines []domain.StockLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restoreCalls++
	f.restored = append(f.restored, lines)
	return nil
}

type fakePay struct {
	mu          sync.Mutex
	record      *domain.PayOrder
	queryCalls  int
	updateErr   error
	updateCalls int
	statuses    []domain.PayStatus
}

func (f *fakePay) QueryByBizOrderID(_ context.Context, _ string) (*domain.PayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return f.record, nil
}

func (f *fakePay) UpdateStatus(_ context.Context, _ string, status domain.PayStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls++
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	err       error
	published []any
}

func (f *fakeEvents) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

type fakeChecks struct {
	mu        sync.Mutex
	err       error
	scheduled []string
}

func (f *fakeChecks) Schedule(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, orderID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testDeps struct {
	store  *fakeStore
	items  *fakeItems
	pay    *fakePay
	events *fakeEvents
	checks *fakeChecks
}

func newTestCoordinator(t *testing.T) (*Coordinator, *testDeps) {
	t.Helper()
	deps := &testDeps{
		store:  newFakeStore(),
		items:  &fakeItems{},
		pay:    &fakePay{},
		events: &fakeEvents{},
		checks: &fakeChecks{},
	}
	c, err := NewCoordinator(deps.store, deps.items, deps.pay, deps.events, deps.checks, discardLogger())
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	return c, deps
}

// pendingOrder seeds an order whose creation saga completed: lines imply
// deducted stock, so the matching step claim is recorded too.
func pendingOrder(store *fakeStore, id string, lines ...domain.OrderLine) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.orders[id] = &domain.Order{
		ID:         id,
		UserID:     "user-1",
		Status:     domain.OrderStatusPending,
		Lines:      lines,
		CreateTime: time.Now().UTC(),
	}
	if len(lines) > 0 {
		store.steps[id+"/"+stepStockDeducted] = struct{}{}
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := usercontext.WithUser(context.Background(), "user-1")

	t.Run("totals snapshotted prices and aggregates quantities", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		deps.items.items = []domain.Item{
			{ID: "item-1", Name: "tea", Price: 1000},
			{ID: "item-2", Name: "cup", Price: 500},
		}

		orderID, err := c.CreateOrder(ctx, OrderForm{Lines: []OrderFormLine{
			{ItemID: "item-1", Quantity: 1},
			{ItemID: "item-2", Quantity: 1},
			{ItemID: "item-1", Quantity: 1},
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		order, _ := deps.store.GetByID(ctx, orderID)
		if order == nil {
			t.Fatal("order not persisted")
		}
		if order.TotalFee != 2500 {
			t.Errorf("expected total fee 2500, got %d", order.TotalFee)
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected status pending, got %d", order.Status)
		}
		if order.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", order.UserID)
		}
		if len(order.Lines) != 2 {
			t.Fatalf("expected one line per distinct item, got %d", len(order.Lines))
		}
		if order.Lines[0].Quantity != 2 {
			t.Errorf("expected aggregated quantity 2, got %d", order.Lines[0].Quantity)
		}

		if len(deps.items.deducted) != 1 {
			t.Fatalf("expected one deduct call, got %d", len(deps.items.deducted))
		}
		if got := deps.items.deducted[0]; len(got) != 2 || got[0] != (domain.StockLine{ItemID: "item-1", Quantity: 2}) {
			t.Errorf("unexpected deduct lines: %+v", got)
		}
		if len(deps.events.published) != 1 {
			t.Errorf("expected order created event, got %d", len(deps.events.published))
		}
		if len(deps.checks.scheduled) != 1 || deps.checks.scheduled[0] != orderID {
			t.Errorf("expected delayed check for %s, got %v", orderID, deps.checks.scheduled)
		}
	})

	t.Run("unknown item rejects the whole order", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		deps.items.items = []domain.Item{{ID: "item-1", Price: 1000}}

		_, err := c.CreateOrder(ctx, OrderForm{Lines: []OrderFormLine{
			{ItemID: "item-1", Quantity: 1},
			{ItemID: "missing", Quantity: 1},
		}})
		if !errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
		if len(deps.store.orders) != 0 {
			t.Error("expected nothing persisted")
		}
		if deps.items.deductCalls != 0 {
			t.Error("expected no deduct call")
		}
	})

	t.Run("invalid form rejected before any call", func(t *testing.T) {
		c, deps := newTestCoordinator(t)

		for _, form := range []OrderForm{
			{},
			{Lines: []OrderFormLine{{ItemID: "item-1", Quantity: 0}}},
			{Lines: []OrderFormLine{{Quantity: 1}}},
		} {
			if _, err := c.CreateOrder(ctx, form); !errors.Is(err, domain.ErrInvalidOrder) {
				t.Errorf("expected ErrInvalidOrder for %+v, got %v", form, err)
			}
		}
		if deps.items.queryCalls != 0 {
			t.Error("expected no item query for invalid forms")
		}
	})

	t.Run("failed deduction rolls the order back", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		deps.items.items = []domain.Item{{ID: "item-1", Price: 1000}}
		deps.items.deductErr = domain.ErrInsufficientStock

		_, err := c.CreateOrder(ctx, OrderForm{Lines: []OrderFormLine{{ItemID: "item-1", Quantity: 2}}})
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if len(deps.store.orders) != 0 {
			t.Error("expected order rolled back")
		}
		if len(deps.store.deleted) != 1 {
			t.Errorf("expected one rollback, got %d", len(deps.store.deleted))
		}
		if len(deps.checks.scheduled) != 0 {
			t.Error("expected no delayed check for a rolled back order")
		}
	})

	t.Run("unreachable item service also surfaces insufficient stock", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		deps.items.items = []domain.Item{{ID: "item-1", Price: 1000}}
		deps.items.deductErr = domain.ErrCollaboratorUnavailable

		_, err := c.CreateOrder(ctx, OrderForm{Lines: []OrderFormLine{{ItemID: "item-1", Quantity: 1}}})
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if len(deps.store.orders) != 0 {
			t.Error("expected order rolled back")
		}
	})

	t.Run("publish and schedule failures never fail a committed order", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		deps.items.items = []domain.Item{{ID: "item-1", Price: 1000}}
		deps.events.err = errors.New("broker down")
		deps.checks.err = errors.New("broker down")

		orderID, err := c.CreateOrder(ctx, OrderForm{Lines: []OrderFormLine{{ItemID: "item-1", Quantity: 1}}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order, _ := deps.store.GetByID(ctx, orderID); order == nil {
			t.Fatal("expected order to survive publish failures")
		}
	})
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent and keeps the first pay time", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1")

		if err := c.MarkPaid(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first, _ := deps.store.GetByID(ctx, "order-1")
		if first.Status != domain.OrderStatusPaid || first.PayTime == nil {
			t.Fatalf("expected paid order with pay time, got %+v", first)
		}

		if err := c.MarkPaid(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error on repeat: %v", err)
		}
		second, _ := deps.store.GetByID(ctx, "order-1")
		if !second.PayTime.Equal(*first.PayTime) {
			t.Error("expected pay time of the first call to be kept")
		}
		if second.Status != domain.OrderStatusPaid {
			t.Error("expected order to stay paid")
		}
	})

	t.Run("never resurrects a cancelled order", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1")
		deps.store.orders["order-1"].Status = domain.OrderStatusCancelled

		if err := c.MarkPaid(ctx, "order-1"); err != nil {
			t.Fatalf("expected dropped confirmation, got %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusCancelled {
			t.Errorf("expected order to stay cancelled, got %d", status)
		}
	})

	t.Run("unknown order is dropped", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		if err := c.MarkPaid(ctx, "ghost"); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

func TestHandleDelayedCheck(t *testing.T) {
	ctx := context.Background()
	line := domain.OrderLine{ItemID: "item-1", Price: 1000, Quantity: 2}

	t.Run("no-op on a paid order", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.store.orders["order-1"].Status = domain.OrderStatusPaid

		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.pay.queryCalls != 0 || deps.items.restoreCalls != 0 {
			t.Error("expected no collaborator calls for a paid order")
		}
	})

	t.Run("no-op on an unknown order", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		if err := c.HandleDelayedCheck(ctx, "ghost"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.pay.queryCalls != 0 {
			t.Error("expected no pay query")
		}
	})

	t.Run("reconciles a lost paid event from the pay record", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.pay.record = &domain.PayOrder{BizOrderID: "order-1", Status: domain.PayStatusTradeSuccess}

		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusPaid {
			t.Errorf("expected paid, got %d", status)
		}
		if deps.items.restoreCalls != 0 {
			t.Error("expected no stock restore for a paid order")
		}
	})

	t.Run("cancels an unpaid order and restores stock exactly once", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)

		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %d", status)
		}
		if deps.pay.updateCalls != 1 || deps.pay.statuses[0] != domain.PayStatusTradeClosed {
			t.Errorf("expected one trade-closed push, got %d %v", deps.pay.updateCalls, deps.pay.statuses)
		}
		if deps.items.restoreCalls != 1 {
			t.Fatalf("expected one restore, got %d", deps.items.restoreCalls)
		}
		if got := deps.items.restored[0]; len(got) != 1 || got[0] != (domain.StockLine{ItemID: "item-1", Quantity: 2}) {
			t.Errorf("unexpected restore lines: %+v", got)
		}

		// Redelivered check: everything already compensated.
		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error on redelivery: %v", err)
		}
		if deps.items.restoreCalls != 1 || deps.pay.updateCalls != 1 {
			t.Errorf("expected compensations to run once, got restore=%d pay=%d",
				deps.items.restoreCalls, deps.pay.updateCalls)
		}
	})

	t.Run("wait-buyer-pay record still cancels", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.pay.record = &domain.PayOrder{BizOrderID: "order-1", Status: domain.PayStatusWaitBuyerPay}

		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %d", status)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	line := domain.OrderLine{ItemID: "item-1", Price: 1000, Quantity: 2}

	t.Run("already paid order refuses cancellation", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.store.orders["order-1"].Status = domain.OrderStatusPaid

		if err := c.CancelOrder(ctx, "order-1"); !errors.Is(err, domain.ErrOrderAlreadyPaid) {
			t.Fatalf("expected ErrOrderAlreadyPaid, got %v", err)
		}
		if deps.items.restoreCalls != 0 {
			t.Error("expected no restore for a paid order")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		if err := c.CancelOrder(ctx, "ghost"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("pay close failure fails the cancellation loudly", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.pay.updateErr = domain.ErrCollaboratorUnavailable

		if err := c.CancelOrder(ctx, "order-1"); !errors.Is(err, domain.ErrCollaboratorUnavailable) {
			t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
		}
		if deps.items.restoreCalls != 0 {
			t.Error("expected restore to be skipped after a failed pay close")
		}

		// Retry after the pay service recovers: the remaining steps run.
		deps.pay.updateErr = nil
		if err := c.CancelOrder(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error on retry: %v", err)
		}
		if deps.pay.updateCalls != 1 || deps.items.restoreCalls != 1 {
			t.Errorf("expected retry to finish compensations, got pay=%d restore=%d",
				deps.pay.updateCalls, deps.items.restoreCalls)
		}
	})

	t.Run("restore failure propagates and is retried", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.items.restoreErr = errors.New("item service down")

		if err := c.CancelOrder(ctx, "order-1"); err == nil {
			t.Fatal("expected restore failure to propagate")
		}

		deps.items.restoreErr = nil
		if err := c.HandleDelayedCheck(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error on redelivered check: %v", err)
		}
		if deps.items.restoreCalls != 1 {
			t.Errorf("expected exactly one successful restore, got %d", deps.items.restoreCalls)
		}
	})

	t.Run("skips restore when stock was never deducted", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)
		deps.store.mu.Lock()
		delete(deps.store.steps, "order-1/"+stepStockDeducted)
		deps.store.mu.Unlock()

		if err := c.CancelOrder(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.items.restoreCalls != 0 {
			t.Error("expected no restore for stock that was never deducted")
		}
		if deps.pay.updateCalls != 1 {
			t.Errorf("expected the pay record still closed, got %d calls", deps.pay.updateCalls)
		}
	})

	t.Run("order without lines needs no restore", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1")

		if err := c.CancelOrder(ctx, "order-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.items.restoreCalls != 0 {
			t.Error("expected no restore for an order without lines")
		}
	})
}

// The paid path and the cancellation path race for the same order; exactly
// one must win, and a paid order must never have its stock restored.
func TestMarkPaidCancelOrderRace(t *testing.T) {
	ctx := context.Background()
	line := domain.OrderLine{ItemID: "item-1", Price: 1000, Quantity: 1}

	for i := 0; i < 100; i++ {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1", line)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := c.MarkPaid(ctx, "order-1"); err != nil {
				t.Errorf("mark paid: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			err := c.CancelOrder(ctx, "order-1")
			if err != nil && !errors.Is(err, domain.ErrOrderAlreadyPaid) {
				t.Errorf("cancel: %v", err)
			}
		}()
		wg.Wait()

		status, _ := deps.store.Status(ctx, "order-1")
		switch status {
		case domain.OrderStatusPaid:
			if deps.items.restoreCalls != 0 {
				t.Fatalf("paid order had stock restored (iteration %d)", i)
			}
		case domain.OrderStatusCancelled:
			if deps.items.restoreCalls != 1 {
				t.Fatalf("cancelled order restored %d times (iteration %d)", deps.items.restoreCalls, i)
			}
		default:
			t.Fatalf("order left in status %d (iteration %d)", status, i)
		}
	}
}

func TestHandlePaySuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("json string payload", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1")

		if err := c.HandlePaySuccess(ctx, []byte(`"order-1"`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusPaid {
			t.Errorf("expected paid, got %d", status)
		}
	})

	t.Run("raw payload", func(t *testing.T) {
		c, deps := newTestCoordinator(t)
		pendingOrder(deps.store, "order-1")

		if err := c.HandlePaySuccess(ctx, []byte("order-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status, _ := deps.store.Status(ctx, "order-1"); status != domain.OrderStatusPaid {
			t.Errorf("expected paid, got %d", status)
		}
	})

	t.Run("empty payload dropped", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		if err := c.HandlePaySuccess(ctx, []byte("")); err != nil {
			t.Fatalf("expected drop, got %v", err)
		}
	})
}
