package conversion

import (
	"math"
	"strings"
	"time"

	"github.com/ecomplus/app-fb-conversions/internal/fbclient"
	"github.com/ecomplus/app-fb-conversions/internal/model"
)

// Outbound event names
const (
	EventNamePurchase         = "Purchase"
	EventNameInitiateCheckout = "InitiateCheckout"
)

// defaultCurrency when the order carries no currency id
const defaultCurrency = "brl"

// eventTimeSkew events must not be timestamped at or after the
// submission instant, so event time is clamped below now by this much
const eventTimeSkew = 3 * time.Second

// MapContent maps one line item. The product identifier prefers the
// sku, falling back to the product id; the title is set only when the
// item has a name.
func MapContent(item model.LineItem) fbclient.Content {
	id := item.SKU
	if id == "" {
		id = item.ProductID
	}
	return fbclient.Content{
		ID:               id,
		Quantity:         item.Quantity,
		Title:            item.Name,
		DeliveryCategory: fbclient.DeliveryCategoryHomeDelivery,
	}
}

// MapContents maps line items preserving order, excluding items with
// non-positive quantity
func MapContents(items []model.LineItem) []fbclient.Content {
	contents := make([]fbclient.Content, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			contents = append(contents, MapContent(item))
		}
	}
	return contents
}

// MapCustomData builds event totals: currency lower-cased defaulting
// to brl, value rounded to cent precision, item count from the mapped
// contents
func MapCustomData(contents []fbclient.Content, total float64, currencyID string) *fbclient.CustomData {
	currency := defaultCurrency
	if currencyID != "" {
		currency = strings.ToLower(currencyID)
	}
	return &fbclient.CustomData{
		Contents: contents,
		Currency: currency,
		Value:    math.Round(total*100) / 100,
		NumItems: len(contents),
	}
}

// MapUserData is the canonical identity builder; every flow routes
// through it so normalization stays uniform. main_email is appended
// after the emails list; last name only rides along with a given
// name; gender passes through only for the literal "f"/"m" values.
func MapUserData(person *model.Customer, clientIP string) *fbclient.UserData {
	userData := &fbclient.UserData{}
	if person != nil {
		userData.ExternalID = person.ID

		emails := make([]string, 0, len(person.Emails)+1)
		for _, email := range person.Emails {
			if email.Address != "" {
				emails = append(emails, email.Address)
			}
		}
		if person.MainEmail != "" {
			emails = append(emails, person.MainEmail)
		}
		if len(emails) > 0 {
			userData.Emails = emails
		}

		if len(person.Phones) > 0 {
			phones := make([]string, 0, len(person.Phones))
			for _, phone := range person.Phones {
				if number := phone.Number.String(); number != "" {
					phones = append(phones, number)
				}
			}
			if len(phones) > 0 {
				userData.Phones = phones
			}
		}

		if person.Name != nil && person.Name.GivenName != "" {
			userData.FirstName = person.Name.GivenName
			if person.Name.FamilyName != "" {
				userData.LastName = person.Name.FamilyName
			}
		}

		if person.Gender == "f" || person.Gender == "m" {
			userData.Gender = person.Gender
		}
	}

	if clientIP != "" {
		userData.ClientIPAddress = clientIP
	}

	return userData
}

// EventTimeMs resolves the event timestamp in milliseconds: the
// record's created_at when parseable, else the trigger datetime, else
// now, always clamped below the wall clock by the allowed skew.
func EventTimeMs(createdAt, triggerDatetime string, now time.Time) int64 {
	eventTime := now
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		eventTime = t
	} else if t, err := time.Parse(time.RFC3339, triggerDatetime); err == nil {
		eventTime = t
	}

	limit := now.Add(-eventTimeSkew)
	if eventTime.After(limit) {
		eventTime = limit
	}
	return eventTime.UnixMilli()
}

// BuildEvent assembles the outbound event. Seconds come from floor
// division so the not-in-future clamp survives the conversion; the
// dedup id is always set; identity and source URL are attached only
// when present.
func BuildEvent(name string, eventTimeMs int64, userData *fbclient.UserData, customData *fbclient.CustomData, dedupID, sourceURL string) *fbclient.ServerEvent {
	event := &fbclient.ServerEvent{
		EventName:    name,
		EventTime:    eventTimeMs / 1000,
		EventID:      dedupID,
		ActionSource: fbclient.ActionSourceWebsite,
		CustomData:   customData,
	}
	if !userData.IsEmpty() {
		event.UserData = userData
	}
	if sourceURL != "" {
		event.EventSourceURL = sourceURL
	}
	return event
}
