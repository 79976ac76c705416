package conversion

import (
	"context"
	"encoding/json"

	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
	"github.com/ecomplus/app-fb-conversions/internal/monitor"
	"github.com/ecomplus/app-fb-conversions/pkg/log"
)

// dispatch submits the built event. Submission failure is tolerated:
// the trigger is acknowledged as accepted so the notifier stops, and
// the failure stays in the logs with full context.
func (s *service) dispatch(ctx context.Context, storeID int64, trigger *model.Trigger, creds fbclient.Credentials, event *fbclient.ServerEvent) *Result {
	start := s.clk.Now()
	err := s.sender.SendEvents(ctx, creds, []*fbclient.ServerEvent{event})
	monitor.ObserveDispatch(event.EventName, err == nil, s.clk.Now().Sub(start))

	if err != nil {
		triggerJSON, _ := json.Marshal(trigger)
		log.WithFields(map[string]interface{}{
			"store_id":   storeID,
			"event_name": event.EventName,
			"trigger":    string(triggerJSON),
			"error":      err.Error(),
		}).Error("Facebook event request error")
		return &Result{Code: ResultAccepted, EventName: event.EventName, Message: err.Error()}
	}

	log.WithFields(map[string]interface{}{
		"store_id":   storeID,
		"event_name": event.EventName,
		"event_id":   event.EventID,
		"pixel_id":   creds.PixelID,
	}).Info("Conversion event delivered")
	return &Result{Code: ResultDispatched, EventName: event.EventName}
}
