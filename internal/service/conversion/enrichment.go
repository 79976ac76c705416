package conversion

import (
	"context"
	"encoding/json"

	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/internal/monitor"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// The browser pixel stores its event id and user agent on the order
// as a tagged metafield after checkout, usually moments after the
// create trigger fires.
const (
	pixelMetafieldNamespace = "fb"
	pixelMetafieldField     = "pixel"
)

// pixelPair client-side tracking pair persisted by the browser pixel
type pixelPair struct {
	EventID   string `json:"eventID,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// fetchEnrichedOrder re-fetches the authoritative order and extracts
// the stored pixel pair, waiting once for a late metafield write.
// Strictly best-effort: every failure is logged and swallowed; a nil
// order return means the caller keeps the trigger-supplied body.
func (s *service) fetchEnrichedOrder(ctx context.Context, storeID int64, orderID string) (order *model.Order, eventID, userAgent string) {
	for attempt := 0; attempt < 2; attempt++ {
		fetched, err := s.store.GetOrder(ctx, storeID, orderID)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"store_id": storeID,
				"order_id": orderID,
				"error":    err.Error(),
			}).Warn("Order enrichment fetch failed")
			return order, "", ""
		}
		order = fetched

		// cheap stops: a cancelled order will not be dispatched, and
		// an order with no metadata at all will never carry the pair
		if order.IsCancelled() || len(order.Metafields) == 0 {
			return order, "", ""
		}

		if mf := order.FindMetafield(pixelMetafieldNamespace, pixelMetafieldField); mf != nil {
			var pair pixelPair
			if err := json.Unmarshal([]byte(mf.Value), &pair); err != nil {
				log.WithFields(map[string]interface{}{
					"store_id": storeID,
					"order_id": orderID,
					"error":    err.Error(),
				}).Warn("Invalid pixel metafield value")
				return order, "", ""
			}
			return order, pair.EventID, pair.UserAgent
		}

		if order.ClientUserAgent != "" {
			return order, "", order.ClientUserAgent
		}

		if attempt == 0 {
			// the pixel may not have written yet; wait once and retry
			monitor.CountEnrichmentRetry()
			s.clk.Sleep(s.enrichRetryDelay)
		}
	}

	// second miss accepted silently, the order id serves as dedup id
	return order, "", ""
}
