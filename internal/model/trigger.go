package model

import "encoding/json"

// Resource and action values carried by Store API triggers
const (
	ResourceOrders = "orders"
	ResourceCarts  = "carts"

	ActionCreate = "create"
)

// Trigger Store API notification payload
// Ref.: https://developers.e-com.plus/docs/api/#/store/triggers/
type Trigger struct {
	Resource   string          `json:"resource"`
	Action     string          `json:"action,omitempty"`
	InsertedID string          `json:"inserted_id,omitempty"`
	Datetime   string          `json:"datetime,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}
