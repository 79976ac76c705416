package conversion

import (
	"context"

	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
)

// EventContext is handed to extensions after mapping/enrichment and
// before dispatch. Order is set for purchase events, Cart for
// checkout events; Event may be annotated in place.
type EventContext struct {
	StoreID int64
	Trigger *model.Trigger
	Order   *model.Order
	Cart    *model.Cart
	Event   *fbclient.ServerEvent
}

// Extension is an optional store-specific stage between enrichment
// and dispatch. Returning deliver=false short-circuits delivery and
// resolves the webhook as skipped. Errors never fail the webhook:
// they are logged and the event proceeds unmodified.
type Extension interface {
	Name() string
	Apply(ctx context.Context, ec *EventContext) (deliver bool, err error)
}
