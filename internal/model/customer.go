package model

import "encoding/json"

// Customer buyer/customer record. Every identity field is optional;
// presence gates which attributes reach the outbound event.
type Customer struct {
	ID        string    `json:"_id,omitempty"`
	MainEmail string    `json:"main_email,omitempty"`
	Emails    []Email   `json:"emails,omitempty"`
	Phones    []Phone   `json:"phones,omitempty"`
	Name      *Name     `json:"name,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`
}

// Email customer email entry
type Email struct {
	Address string `json:"address,omitempty"`
}

// Phone customer phone entry. Number may arrive as a JSON number or
// string depending on the storefront client that wrote it.
type Phone struct {
	CountryCode int         `json:"country_code,omitempty"`
	Number      json.Number `json:"number,omitempty"`
}

// Name customer name parts
type Name struct {
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// Address customer/shipping address
type Address struct {
	Zip          string `json:"zip,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// FirstAddress returns the customer's first saved address, or nil
func (c *Customer) FirstAddress() *Address {
	if len(c.Addresses) == 0 {
		return nil
	}
	return &c.Addresses[0]
}
