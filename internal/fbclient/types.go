// Package fbclient submits server events to the Facebook (Meta)
// Conversions API.
// Ref.: https://developers.facebook.com/docs/marketing-api/conversions-api
package fbclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"
)

// Delivery categories accepted by the Conversions API
const (
	DeliveryCategoryHomeDelivery = "home_delivery"
)

// ActionSourceWebsite fixed action source for storefront events
const ActionSourceWebsite = "website"

// Content one purchased/carted item
type Content struct {
	ID               string `json:"id,omitempty"`
	Quantity         int    `json:"quantity,omitempty"`
	Title            string `json:"title,omitempty"`
	DeliveryCategory string `json:"delivery_category,omitempty"`
}

// CustomData event totals
type CustomData struct {
	Contents []Content `json:"contents,omitempty"`
	Currency string    `json:"currency,omitempty"`
	Value    float64   `json:"value"`
	NumItems int       `json:"num_items,omitempty"`
}

// UserData event identity. Fields hold raw values; marshalling
// normalizes and SHA-256 hashes everything the API requires hashed
// (ip address and user agent go over in clear, per the API contract).
type UserData struct {
	Emails          []string
	Phones          []string
	FirstName       string
	LastName        string
	Gender          string
	ExternalID      string
	Zip             string
	City            string
	State           string
	Country         string
	ClientIPAddress string
	ClientUserAgent string
}

// IsEmpty reports whether no identity attribute is set
func (u *UserData) IsEmpty() bool {
	return u == nil || (len(u.Emails) == 0 && len(u.Phones) == 0 &&
		u.FirstName == "" && u.LastName == "" && u.Gender == "" &&
		u.ExternalID == "" && u.Zip == "" && u.City == "" &&
		u.State == "" && u.Country == "" &&
		u.ClientIPAddress == "" && u.ClientUserAgent == "")
}

type wireUserData struct {
	Em              []string `json:"em,omitempty"`
	Ph              []string `json:"ph,omitempty"`
	Fn              []string `json:"fn,omitempty"`
	Ln              []string `json:"ln,omitempty"`
	Ge              []string `json:"ge,omitempty"`
	ExternalID      []string `json:"external_id,omitempty"`
	Zp              []string `json:"zp,omitempty"`
	Ct              []string `json:"ct,omitempty"`
	St              []string `json:"st,omitempty"`
	Country         []string `json:"country,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

// MarshalJSON emits the hashed wire representation
func (u UserData) MarshalJSON() ([]byte, error) {
	wire := wireUserData{
		Em:              hashAll(u.Emails, normalizeField),
		Ph:              hashAll(u.Phones, normalizePhone),
		ClientIPAddress: u.ClientIPAddress,
		ClientUserAgent: u.ClientUserAgent,
	}
	if u.FirstName != "" {
		wire.Fn = []string{hashField(normalizeField(u.FirstName))}
	}
	if u.LastName != "" {
		wire.Ln = []string{hashField(normalizeField(u.LastName))}
	}
	if u.Gender != "" {
		wire.Ge = []string{hashField(normalizeField(u.Gender))}
	}
	if u.ExternalID != "" {
		wire.ExternalID = []string{hashField(normalizeField(u.ExternalID))}
	}
	if u.Zip != "" {
		wire.Zp = []string{hashField(normalizeZip(u.Zip))}
	}
	if u.City != "" {
		wire.Ct = []string{hashField(normalizeGeo(u.City))}
	}
	if u.State != "" {
		wire.St = []string{hashField(normalizeGeo(u.State))}
	}
	if u.Country != "" {
		wire.Country = []string{hashField(normalizeGeo(u.Country))}
	}
	return json.Marshal(wire)
}

// ServerEvent one conversion event
type ServerEvent struct {
	EventName      string      `json:"event_name"`
	EventTime      int64       `json:"event_time"`
	EventID        string      `json:"event_id,omitempty"`
	EventSourceURL string      `json:"event_source_url,omitempty"`
	ActionSource   string      `json:"action_source,omitempty"`
	UserData       *UserData   `json:"user_data,omitempty"`
	CustomData     *CustomData `json:"custom_data,omitempty"`
}

func hashField(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func hashAll(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		out = append(out, hashField(n))
	}
	return out
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizePhone keeps digits only
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeZip lowercases and strips spaces and dashes
func normalizeZip(s string) string {
	s = normalizeField(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}

// normalizeGeo lowercases and strips spaces
func normalizeGeo(s string) string {
	return strings.ReplaceAll(normalizeField(s), " ", "")
}
