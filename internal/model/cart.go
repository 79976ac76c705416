package model

// Cart storefront shopping cart
type Cart struct {
	ID        string     `json:"_id"`
	Completed bool       `json:"completed,omitempty"`
	Customers []string   `json:"customers,omitempty"`
	Items     []LineItem `json:"items,omitempty"`
	Subtotal  float64    `json:"subtotal,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	Permalink string     `json:"permalink,omitempty"`
}

// FirstCustomerID returns the id of the first customer associated
// with the cart, or empty
func (c *Cart) FirstCustomerID() string {
	if len(c.Customers) == 0 {
		return ""
	}
	return c.Customers[0]
}
