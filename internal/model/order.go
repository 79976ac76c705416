package model

// OrderStatusCancelled terminal order status
const OrderStatusCancelled = "cancelled"

// Order storefront order, as delivered by triggers and by the
// Store API. The trigger copy may be stale; the fetched copy wins.
type Order struct {
	ID              string         `json:"_id"`
	Status          string         `json:"status,omitempty"`
	Buyers          []Customer     `json:"buyers,omitempty"`
	BrowserIP       string         `json:"browser_ip,omitempty"`
	Items           []LineItem     `json:"items,omitempty"`
	Amount          *Amount        `json:"amount,omitempty"`
	CurrencyID      string         `json:"currency_id,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	CheckoutLink    string         `json:"checkout_link,omitempty"`
	Domain          string         `json:"domain,omitempty"`
	ShippingLines   []ShippingLine `json:"shipping_lines,omitempty"`
	Metafields      []Metafield    `json:"metafields,omitempty"`
	ClientUserAgent string         `json:"client_user_agent,omitempty"`
}

// Amount order totals
type Amount struct {
	Total    *float64 `json:"total,omitempty"`
	Subtotal *float64 `json:"subtotal,omitempty"`
	Freight  *float64 `json:"freight,omitempty"`
	Discount *float64 `json:"discount,omitempty"`
}

// LineItem order/cart item
type LineItem struct {
	SKU       string  `json:"sku,omitempty"`
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// ShippingLine order shipping entry
type ShippingLine struct {
	To *Address `json:"to,omitempty"`
}

// Metafield tagged metadata entry attached to an order
type Metafield struct {
	ID        string `json:"_id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Field     string `json:"field,omitempty"`
	Value     string `json:"value,omitempty"`
}

// IsCancelled reports whether the order reached the cancelled status
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// FindMetafield returns the first metafield matching namespace and
// field, or nil
func (o *Order) FindMetafield(namespace, field string) *Metafield {
	for i := range o.Metafields {
		mf := &o.Metafields[i]
		if mf.Namespace == namespace && mf.Field == field {
			return mf
		}
	}
	return nil
}

// FirstBuyer returns the first buyer on the order, or nil
func (o *Order) FirstBuyer() *Customer {
	if len(o.Buyers) == 0 {
		return nil
	}
	return &o.Buyers[0]
}

// ShippingAddress returns the destination of the first shipping line
// carrying a zip code, or nil
func (o *Order) ShippingAddress() *Address {
	for i := range o.ShippingLines {
		to := o.ShippingLines[i].To
		if to != nil && to.Zip != "" {
			return to
		}
	}
	return nil
}
