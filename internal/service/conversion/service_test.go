package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ecomplus/app-fb-conversions/internal/ecomclient"
	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/pkg/clock"
)

const testStoreID = int64(42)

// MockAppDataSource is a mock implementation of AppDataSource
type MockAppDataSource struct {
	mock.Mock
}

func (m *MockAppDataSource) GetAppData(ctx context.Context, storeID int64) (*model.AppData, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AppData), args.Error(1)
}

// MockStoreReader is a mock implementation of StoreReader
type MockStoreReader struct {
	mock.Mock
}

func (m *MockStoreReader) GetOrder(ctx context.Context, storeID int64, orderID string) (*model.Order, error) {
	args := m.Called(ctx, storeID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockStoreReader) GetCustomer(ctx context.Context, storeID int64, customerID string) (*model.Customer, error) {
	args := m.Called(ctx, storeID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

// MockEventSender is a mock implementation of EventSender
type MockEventSender struct {
	mock.Mock
}

func (m *MockEventSender) SendEvents(ctx context.Context, creds fbclient.Credentials, events []*fbclient.ServerEvent) error {
	args := m.Called(ctx, creds, events)
	return args.Error(0)
}

func defaultAppData() *model.AppData {
	return &model.AppData{
		FBPixelID:    "P1",
		FBGraphToken: "T1",
	}
}

func sampleOrder() *model.Order {
	total := 59.9
	return &model.Order{
		ID:         "order1",
		Status:     "open",
		Buyers:     []model.Customer{{ID: "c1", MainEmail: "buyer@x.com"}},
		BrowserIP:  "10.0.0.1",
		Items:      []model.LineItem{{SKU: "sku1", Quantity: 1, Name: "Shirt"}},
		Amount:     &model.Amount{Total: &total},
		CurrencyID: "BRL",
		CreatedAt:  time.Now().Add(-time.Hour).Format(time.RFC3339),
		Domain:     "shop.test",
	}
}

func orderTrigger(t *testing.T, order *model.Order) *model.Trigger {
	t.Helper()
	body, err := json.Marshal(order)
	assert.NoError(t, err)
	return &model.Trigger{
		Resource:   model.ResourceOrders,
		Action:     model.ActionCreate,
		InsertedID: order.ID,
		Datetime:   time.Now().Format(time.RFC3339),
		Body:       body,
	}
}

func cartTrigger(t *testing.T, cart *model.Cart) *model.Trigger {
	t.Helper()
	body, err := json.Marshal(cart)
	assert.NoError(t, err)
	return &model.Trigger{
		Resource:   model.ResourceCarts,
		Action:     model.ActionCreate,
		InsertedID: cart.ID,
		Datetime:   time.Now().Format(time.RFC3339),
		Body:       body,
	}
}

func newTestService(appData *MockAppDataSource, store *MockStoreReader, sender *MockEventSender, clk clock.Clock, exts ...Extension) Service {
	return NewService(Options{
		AppData:          appData,
		Store:            store,
		Sender:           sender,
		Clock:            clk,
		EnrichRetryDelay: 20 * time.Second,
		Extensions:       exts,
	})
}

func TestHandleTrigger_ConfigOutcomes(t *testing.T) {
	t.Run("unauthenticated store", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).
			Return(nil, ecomclient.ErrUnauthenticated)

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultUnauthenticated, result.Code)
		assert.Contains(t, result.Message, "42")
	})

	t.Run("app data not found", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).
			Return(nil, ecomclient.ErrNotFound)

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultNoConfig, result.Code)
	})

	t.Run("unexpected config error", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).
			Return(nil, errors.New("store api down"))

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultInternalError, result.Code)
		assert.Contains(t, result.Message, "store api down")
	})

	t.Run("ignored trigger resource", func(t *testing.T) {
		data := defaultAppData()
		data.IgnoreTriggers = []string{"orders"}
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(data, nil)

		store := new(MockStoreReader)
		sender := new(MockEventSender)
		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultSkipped, result.Code)
		store.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
		sender.AssertNotCalled(t, "SendEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported resource-action", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, &model.Trigger{
			Resource: "products",
			Action:   "create",
		})

		assert.Equal(t, ResultPrecondition, result.Code)
	})
}

func TestHandleTrigger_OrderFlow(t *testing.T) {
	t.Run("cancelled at trigger time stops before any fetch", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		order := sampleOrder()
		order.Status = model.OrderStatusCancelled

		store := new(MockStoreReader)
		sender := new(MockEventSender)
		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, order))

		assert.Equal(t, ResultTerminal, result.Code)
		store.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
		sender.AssertNotCalled(t, "SendEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no buyer fails the precondition", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		order := sampleOrder()
		order.Buyers = nil

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, order))

		assert.Equal(t, ResultPrecondition, result.Code)
	})

	t.Run("no usable credentials fails the precondition", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(&model.AppData{}, nil)

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultPrecondition, result.Code)
	})

	t.Run("dispatches purchase with enriched event id after one delayed retry", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		first := sampleOrder()
		first.Metafields = []model.Metafield{{Namespace: "other", Field: "x", Value: "{}"}}

		second := sampleOrder()
		second.Metafields = []model.Metafield{
			{Namespace: "fb", Field: "pixel", Value: `{"eventID":"EV1","userAgent":"Mozilla/5.0"}`},
		}

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(first, nil).Once()
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(second, nil).Once()

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				events := args.Get(2).([]*fbclient.ServerEvent)
				sent = events[0]
			}).
			Return(nil)

		clk := clock.NewFake(time.Now())
		svc := newTestService(appData, store, sender, clk)
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Equal(t, EventNamePurchase, result.EventName)
		assert.Equal(t, []time.Duration{20 * time.Second}, clk.Slept)

		assert.NotNil(t, sent)
		assert.Equal(t, EventNamePurchase, sent.EventName)
		assert.Equal(t, "EV1", sent.EventID)
		assert.Equal(t, "Mozilla/5.0", sent.UserData.ClientUserAgent)
		assert.Equal(t, "10.0.0.1", sent.UserData.ClientIPAddress)
		store.AssertExpectations(t)
	})

	t.Run("order-level user agent serves as fallback without retry", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		fetched := sampleOrder()
		fetched.Metafields = []model.Metafield{{Namespace: "other", Field: "x", Value: "{}"}}
		fetched.ClientUserAgent = "Mozilla/5.0 (stored)"

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(fetched, nil).Once()

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		clk := clock.NewFake(time.Now())
		svc := newTestService(appData, store, sender, clk)
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Empty(t, clk.Slept)
		assert.Equal(t, "Mozilla/5.0 (stored)", sent.UserData.ClientUserAgent)
		assert.Equal(t, "order1", sent.EventID)
		store.AssertExpectations(t)
	})

	t.Run("both fetches missing the pair still dispatches after one wait", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		miss := sampleOrder()
		miss.Metafields = []model.Metafield{{Namespace: "other", Field: "x", Value: "{}"}}

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(miss, nil).Times(2)

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		clk := clock.NewFake(time.Now())
		svc := newTestService(appData, store, sender, clk)
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Equal(t, []time.Duration{20 * time.Second}, clk.Slept)
		assert.Equal(t, "order1", sent.EventID)
		assert.Empty(t, sent.UserData.ClientUserAgent)
		store.AssertExpectations(t)
	})

	t.Run("dedup id falls back to the order id without enrichment", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		// no metadata at all: enrichment stops without retrying
		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(sampleOrder(), nil).Once()

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		clk := clock.NewFake(time.Now())
		svc := newTestService(appData, store, sender, clk)
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Empty(t, clk.Slept)
		assert.Equal(t, "order1", sent.EventID)
	})

	t.Run("enrichment fetch failure keeps the trigger body", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").
			Return(nil, errors.New("connection refused"))

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Equal(t, "order1", sent.EventID)
	})

	t.Run("cancellation found on the refreshed order", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		cancelled := sampleOrder()
		cancelled.Status = model.OrderStatusCancelled

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(cancelled, nil).Once()

		sender := new(MockEventSender)
		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultTerminal, result.Code)
		sender.AssertNotCalled(t, "SendEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("domain override routes to the alternate pixel", func(t *testing.T) {
		data := defaultAppData()
		data.PixelsByDomain = []model.DomainPixel{
			{Domain: "shop.test", FBPixelID: "P2", FBGraphToken: "T2"},
		}
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(data, nil)

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(sampleOrder(), nil)

		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything,
			fbclient.Credentials{PixelID: "P2", AccessToken: "T2"},
			mock.Anything).Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		sender.AssertExpectations(t)
	})

	t.Run("shipping destination reaches the identity", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		order := sampleOrder()
		order.ShippingLines = []model.ShippingLine{
			{To: &model.Address{Zip: "01310-000", ProvinceCode: "SP", CountryCode: "BR"}},
		}

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(order, nil)

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, "01310-000", sent.UserData.Zip)
		assert.Equal(t, "SP", sent.UserData.State)
		assert.Equal(t, "BR", sent.UserData.Country)
	})

	t.Run("source url prefers the checkout link then the domain", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		order := sampleOrder()
		order.CheckoutLink = "https://shop.test/checkout/abc"

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(order, nil)

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))
		assert.Equal(t, "https://shop.test/checkout/abc", sent.EventSourceURL)

		order.CheckoutLink = ""
		store2 := new(MockStoreReader)
		store2.On("GetOrder", mock.Anything, testStoreID, "order1").Return(order, nil)
		svc = newTestService(appData, store2, sender, clock.NewFake(time.Now()))
		svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))
		assert.Equal(t, "https://shop.test", sent.EventSourceURL)
	})

	t.Run("missing amount total is a data error", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		order := sampleOrder()
		order.Amount = nil

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(order, nil)

		svc := newTestService(appData, store, new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, order))

		assert.Equal(t, ResultInternalError, result.Code)
		assert.Contains(t, result.Message, "amount.total")
	})

	t.Run("downstream failure is acknowledged as accepted", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(sampleOrder(), nil)

		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("invalid access token"))

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultAccepted, result.Code)
		assert.Equal(t, EventNamePurchase, result.EventName)
	})
}

func TestHandleTrigger_CartFlow(t *testing.T) {
	sampleCart := func() *model.Cart {
		return &model.Cart{
			ID:        "cart1",
			Customers: []string{"c9"},
			Items:     []model.LineItem{{SKU: "sku1", Quantity: 2}},
			Subtotal:  49.9,
			CreatedAt: time.Now().Add(-time.Minute).Format(time.RFC3339),
			Permalink: "https://shop.test/cart/cart1",
		}
	}

	t.Run("completed cart stops before any fetch", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		cart := sampleCart()
		cart.Completed = true

		store := new(MockStoreReader)
		sender := new(MockEventSender)
		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, cartTrigger(t, cart))

		assert.Equal(t, ResultTerminal, result.Code)
		store.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything, mock.Anything)
		sender.AssertNotCalled(t, "SendEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cart conversions disabled by configuration", func(t *testing.T) {
		data := defaultAppData()
		data.FBDisableCart = true
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(data, nil)

		svc := newTestService(appData, new(MockStoreReader), new(MockEventSender), clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, cartTrigger(t, sampleCart()))

		assert.Equal(t, ResultPrecondition, result.Code)
	})

	t.Run("dispatches initiate checkout with customer identity", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetCustomer", mock.Anything, testStoreID, "c9").Return(&model.Customer{
			ID:        "c9",
			MainEmail: "cart@x.com",
			Addresses: []model.Address{{Zip: "20000-000", ProvinceCode: "RJ", CountryCode: "BR"}},
		}, nil)

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, cartTrigger(t, sampleCart()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Equal(t, EventNameInitiateCheckout, result.EventName)

		assert.Equal(t, EventNameInitiateCheckout, sent.EventName)
		assert.Equal(t, "cart1", sent.EventID)
		assert.Equal(t, "https://shop.test/cart/cart1", sent.EventSourceURL)
		assert.Equal(t, []string{"cart@x.com"}, sent.UserData.Emails)
		assert.Equal(t, "20000-000", sent.UserData.Zip)
		assert.Empty(t, sent.UserData.ClientIPAddress)
		assert.Equal(t, "brl", sent.CustomData.Currency)
		assert.Equal(t, 49.9, sent.CustomData.Value)
	})

	t.Run("customer fetch failure still dispatches an anonymous event", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetCustomer", mock.Anything, testStoreID, "c9").
			Return(nil, errors.New("timeout"))

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()))
		result := svc.HandleTrigger(context.Background(), testStoreID, cartTrigger(t, sampleCart()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Nil(t, sent.UserData)
	})
}

type skipExtension struct{}

func (skipExtension) Name() string { return "skip-all" }

func (skipExtension) Apply(ctx context.Context, ec *EventContext) (bool, error) {
	return false, nil
}

type taggingExtension struct{}

func (taggingExtension) Name() string { return "tag-source" }

func (taggingExtension) Apply(ctx context.Context, ec *EventContext) (bool, error) {
	ec.Event.EventSourceURL = "https://tagged.test"
	return true, nil
}

func TestHandleTrigger_Extensions(t *testing.T) {
	t.Run("extension can short-circuit delivery", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(sampleOrder(), nil)

		sender := new(MockEventSender)
		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()), skipExtension{})
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultSkipped, result.Code)
		sender.AssertNotCalled(t, "SendEvents", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("extension can annotate the event", func(t *testing.T) {
		appData := new(MockAppDataSource)
		appData.On("GetAppData", mock.Anything, testStoreID).Return(defaultAppData(), nil)

		store := new(MockStoreReader)
		store.On("GetOrder", mock.Anything, testStoreID, "order1").Return(sampleOrder(), nil)

		var sent *fbclient.ServerEvent
		sender := new(MockEventSender)
		sender.On("SendEvents", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(2).([]*fbclient.ServerEvent)[0]
			}).
			Return(nil)

		svc := newTestService(appData, store, sender, clock.NewFake(time.Now()), taggingExtension{})
		result := svc.HandleTrigger(context.Background(), testStoreID, orderTrigger(t, sampleOrder()))

		assert.Equal(t, ResultDispatched, result.Code)
		assert.Equal(t, "https://tagged.test", sent.EventSourceURL)
	})
}
