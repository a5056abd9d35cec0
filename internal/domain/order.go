package domain

import "time"

const (
	DefaultSKU      = "ABC"
	DefaultQuantity = "1"
	DefaultTotal    = "19.99"
)

type OrderItem struct {
	SKU string `json:"sku"`
	Qty Number `json:"qty"`
}

// CreateOrderRequest is the body of POST /orders. An order always carries a
// single line item.
type CreateOrderRequest struct {
	UserID string      `json:"user_id"`
	Items  []OrderItem `json:"items"`
	Total  Number      `json:"total"`
}

// OrderRecord is what the order service returns for a stored order.
type OrderRecord struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     Number      `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderDraft holds the order form exactly as typed. Quantity and Total stay
// strings until submission.
type OrderDraft struct {
	UserID   string
	SKU      string
	Quantity string
	Total    string
}

func NewOrderDraft() OrderDraft {
	return OrderDraft{
		SKU:      DefaultSKU,
		Quantity: DefaultQuantity,
		Total:    DefaultTotal,
	}
}

// Request coerces the numeric fields and builds the request body. No field
// is validated; the order service decides what to reject.
func (d OrderDraft) Request() CreateOrderRequest {
	return CreateOrderRequest{
		UserID: d.UserID,
		Items: []OrderItem{
			{SKU: d.SKU, Qty: CoerceNumber(d.Quantity)},
		},
		Total: CoerceNumber(d.Total),
	}
}
