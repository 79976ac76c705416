// Package conversion maps storefront order/cart triggers into
// Conversions API events and delivers them. One trigger resolves to
// exactly one Result; nothing here writes an HTTP response.
package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecomplus/app-fb-conversions/internal/ecomclient"
	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/pkg/clock"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// AppDataSource reads per-store app configuration
type AppDataSource interface {
	GetAppData(ctx context.Context, storeID int64) (*model.AppData, error)
}

// StoreReader reads orders and customers from the Store API
type StoreReader interface {
	GetOrder(ctx context.Context, storeID int64, orderID string) (*model.Order, error)
	GetCustomer(ctx context.Context, storeID int64, customerID string) (*model.Customer, error)
}

// EventSender submits events to the conversions endpoint
type EventSender interface {
	SendEvents(ctx context.Context, creds fbclient.Credentials, events []*fbclient.ServerEvent) error
}

// Service handles Store API triggers
type Service interface {
	// HandleTrigger processes one trigger for one store
	HandleTrigger(ctx context.Context, storeID int64, trigger *model.Trigger) *Result
}

type service struct {
	appData          AppDataSource
	store            StoreReader
	sender           EventSender
	clk              clock.Clock
	enrichRetryDelay time.Duration
	extensions       []Extension
}

// Options conversion service dependencies and tuning
type Options struct {
	AppData          AppDataSource
	Store            StoreReader
	Sender           EventSender
	Clock            clock.Clock
	EnrichRetryDelay time.Duration
	Extensions       []Extension
}

// NewService creates the conversion service
func NewService(opts Options) Service {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	delay := opts.EnrichRetryDelay
	if delay == 0 {
		delay = 20 * time.Second
	}
	return &service{
		appData:          opts.AppData,
		store:            opts.Store,
		sender:           opts.Sender,
		clk:              clk,
		enrichRetryDelay: delay,
		extensions:       opts.Extensions,
	}
}

// HandleTrigger routes one trigger. Cheap rejects (ignore list,
// terminal states, unusable credentials) resolve before any
// enrichment fetch or outbound call.
func (s *service) HandleTrigger(ctx context.Context, storeID int64, trigger *model.Trigger) *Result {
	appData, err := s.appData.GetAppData(ctx, storeID)
	if err != nil {
		switch {
		case errors.Is(err, ecomclient.ErrUnauthenticated):
			return &Result{
				Code:    ResultUnauthenticated,
				Message: fmt.Sprintf("Webhook for %d unhandled with no authentication found", storeID),
			}
		case errors.Is(err, ecomclient.ErrNotFound):
			return &Result{Code: ResultNoConfig}
		default:
			return &Result{Code: ResultInternalError, Message: err.Error()}
		}
	}

	if appData.IgnoresTrigger(trigger.Resource) {
		return &Result{Code: ResultSkipped}
	}

	switch {
	case trigger.Resource == model.ResourceOrders && trigger.Action == model.ActionCreate:
		return s.handleOrder(ctx, storeID, trigger, appData)
	case trigger.Resource == model.ResourceCarts && trigger.Action == model.ActionCreate && !appData.FBDisableCart:
		return s.handleCart(ctx, storeID, trigger, appData)
	default:
		return &Result{Code: ResultPrecondition}
	}
}

func (s *service) handleOrder(ctx context.Context, storeID int64, trigger *model.Trigger, appData *model.AppData) *Result {
	var order model.Order
	if err := json.Unmarshal(trigger.Body, &order); err != nil {
		return &Result{Code: ResultInternalError, Message: fmt.Sprintf("invalid order body: %v", err)}
	}

	buyer := order.FirstBuyer()
	if buyer == nil {
		return &Result{Code: ResultPrecondition}
	}

	if order.IsCancelled() {
		return &Result{Code: ResultTerminal}
	}

	creds := ResolveCredentials(appData, order.Domain)
	if !creds.IsUsable() {
		return &Result{Code: ResultPrecondition}
	}

	orderID := order.ID
	if orderID == "" {
		orderID = trigger.InsertedID
	}

	// the trigger body may precede the pixel's metafield write
	fetched, eventID, userAgent := s.fetchEnrichedOrder(ctx, storeID, orderID)
	if fetched != nil {
		order = *fetched
		if fresh := order.FirstBuyer(); fresh != nil {
			buyer = fresh
		}
	}

	// status may have flipped between webhook delivery and fetch
	if order.IsCancelled() {
		return &Result{Code: ResultTerminal}
	}

	if order.Amount == nil || order.Amount.Total == nil {
		return &Result{Code: ResultInternalError, Message: "order amount.total is missing"}
	}

	userData := MapUserData(buyer, order.BrowserIP)
	if userAgent != "" {
		userData.ClientUserAgent = userAgent
	}
	if addr := order.ShippingAddress(); addr != nil {
		userData.Zip = addr.Zip
		userData.State = addr.ProvinceCode
		userData.Country = addr.CountryCode
	}

	customData := MapCustomData(MapContents(order.Items), *order.Amount.Total, order.CurrencyID)

	sourceURL := order.CheckoutLink
	if sourceURL == "" && order.Domain != "" {
		sourceURL = "https://" + order.Domain
	}

	dedupID := eventID
	if dedupID == "" {
		dedupID = orderID
	}

	eventTimeMs := EventTimeMs(order.CreatedAt, trigger.Datetime, s.clk.Now())
	event := BuildEvent(EventNamePurchase, eventTimeMs, userData, customData, dedupID, sourceURL)

	if !s.applyExtensions(ctx, &EventContext{
		StoreID: storeID,
		Trigger: trigger,
		Order:   &order,
		Event:   event,
	}) {
		return &Result{Code: ResultSkipped, EventName: event.EventName}
	}

	return s.dispatch(ctx, storeID, trigger, creds, event)
}

func (s *service) handleCart(ctx context.Context, storeID int64, trigger *model.Trigger, appData *model.AppData) *Result {
	var cart model.Cart
	if err := json.Unmarshal(trigger.Body, &cart); err != nil {
		return &Result{Code: ResultInternalError, Message: fmt.Sprintf("invalid cart body: %v", err)}
	}

	if cart.Completed {
		return &Result{Code: ResultTerminal}
	}

	creds := ResolveCredentials(appData, "")
	if !creds.IsUsable() {
		return &Result{Code: ResultPrecondition}
	}

	// identity is best-effort for carts: an anonymous cart still
	// produces a checkout event
	var customer *model.Customer
	if customerID := cart.FirstCustomerID(); customerID != "" {
		fetched, err := s.store.GetCustomer(ctx, storeID, customerID)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"store_id":    storeID,
				"customer_id": customerID,
				"error":       err.Error(),
			}).Warn("Cart customer fetch failed")
		} else {
			customer = fetched
		}
	}

	userData := MapUserData(customer, "")
	if customer != nil {
		if addr := customer.FirstAddress(); addr != nil {
			userData.Zip = addr.Zip
			userData.State = addr.ProvinceCode
			userData.Country = addr.CountryCode
		}
	}

	customData := MapCustomData(MapContents(cart.Items), cart.Subtotal, "")

	cartID := cart.ID
	if cartID == "" {
		cartID = trigger.InsertedID
	}

	eventTimeMs := EventTimeMs(cart.CreatedAt, trigger.Datetime, s.clk.Now())
	event := BuildEvent(EventNameInitiateCheckout, eventTimeMs, userData, customData, cartID, cart.Permalink)

	if !s.applyExtensions(ctx, &EventContext{
		StoreID: storeID,
		Trigger: trigger,
		Cart:    &cart,
		Event:   event,
	}) {
		return &Result{Code: ResultSkipped, EventName: event.EventName}
	}

	return s.dispatch(ctx, storeID, trigger, creds, event)
}

// applyExtensions runs the optional store-specific stages; a failing
// extension is logged and ignored, a short-circuiting one wins
func (s *service) applyExtensions(ctx context.Context, ec *EventContext) bool {
	for _, ext := range s.extensions {
		deliver, err := ext.Apply(ctx, ec)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"store_id":  ec.StoreID,
				"extension": ext.Name(),
				"error":     err.Error(),
			}).Warn("Extension failed, continuing")
			continue
		}
		if !deliver {
			log.WithFields(map[string]interface{}{
				"store_id":  ec.StoreID,
				"extension": ext.Name(),
			}).Info("Extension short-circuited delivery")
			return false
		}
	}
	return true
}
