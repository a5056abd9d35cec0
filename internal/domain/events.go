package domain

import "time"

type Operation string

const (
	OperationCreateUser  Operation = "create_user"
	OperationCreateOrder Operation = "create_order"
	OperationListOrders  Operation = "list_orders"
)

// ActivityEvent is published once per settled console operation.
type ActivityEvent struct {
	SessionID  string    `json:"session_id"`
	Operation  Operation `json:"operation"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	Token      uint64    `json:"token"`
	Timestamp  time.Time `json:"timestamp"`
}
