package domain

import "time"

// OrderStatus values are part of the wire contract with the pay and item
// services and must stay numerically stable.
type OrderStatus int

const (
	OrderStatusPending       OrderStatus = 1
	OrderStatusPaid          OrderStatus = 2
	OrderStatusCancelled     OrderStatus = 5
	OrderStatusClosedByOther OrderStatus = 6
)

// Terminal reports whether the status can never be left again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled || s == OrderStatusClosedByOther
}

type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Status      OrderStatus `json:"status"`
	TotalFee    int64       `json:"total_fee"`
	PaymentType int         `json:"payment_type"`
	Lines       []OrderLine `json:"lines"`
	CreateTime  time.Time   `json:"create_time"`
	PayTime     *time.Time  `json:"pay_time,omitempty"`
}

// OrderLine is a snapshot of the item at order time. Rows are written once
// and never updated, so later catalog changes cannot alter the order.
type OrderLine struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Spec     string `json:"spec"`
	Price    int64  `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// Item is the catalog snapshot returned by the item service.
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Spec  string `json:"spec"`
	Price int64  `json:"price"`
	Image string `json:"image"`
	Stock int    `json:"stock"`
}

// StockLine is the unit of the deduct/restore contract with the item
// service.
type StockLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// PayStatus values mirror the pay service's contract; 3 means the buyer
// actually paid.
type PayStatus int

const (
	PayStatusWaitBuyerPay PayStatus = 1
	PayStatusTradeClosed  PayStatus = 2
	PayStatusTradeSuccess PayStatus = 3
)

// PayOrder is the pay service's record for a business order, the source of
// truth for "did the user actually pay".
type PayOrder struct {
	BizOrderID string    `json:"biz_order_id"`
	Status     PayStatus `json:"status"`
	Amount     int64     `json:"amount"`
}
