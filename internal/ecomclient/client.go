// Package ecomclient is a thin Store API client covering the three
// reads this app needs: application data, orders and customers.
package ecomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ecomplus/app-fb-conversions/internal/model"
)

// Sentinel errors for Store API response classes
var (
	// ErrUnauthenticated the store has no valid credentials for this app
	ErrUnauthenticated = errors.New("ecom: store not authenticated")

	// ErrNotFound the requested resource does not exist
	ErrNotFound = errors.New("ecom: resource not found")
)

// Client calls the Store API on behalf of a store
type Client struct {
	baseURL     string
	appID       string
	accessToken string
	httpClient  *http.Client
}

// Options Store API client options
type Options struct {
	BaseURL     string
	AppID       string
	AccessToken string
	HTTPClient  *http.Client
}

// NewClient creates a Store API client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		}
	}
	return &Client{
		baseURL:     opts.BaseURL,
		appID:       opts.AppID,
		accessToken: opts.AccessToken,
		httpClient:  httpClient,
	}
}

// GetAppData fetches the app options configured by the store
func (c *Client) GetAppData(ctx context.Context, storeID int64) (*model.AppData, error) {
	var wrapper struct {
		Data   model.AppData `json:"data"`
		Hidden model.AppData `json:"hidden_data"`
	}
	path := fmt.Sprintf("/applications/%s/data.json", c.appID)
	if err := c.get(ctx, storeID, path, &wrapper); err != nil {
		return nil, err
	}

	// hidden_data keeps credentials out of the public app body
	appData := wrapper.Data
	if appData.FBPixelID == "" {
		appData.FBPixelID = wrapper.Hidden.FBPixelID
	}
	if appData.FBGraphToken == "" {
		appData.FBGraphToken = wrapper.Hidden.FBGraphToken
	}
	return &appData, nil
}

// GetOrder fetches an order by id
func (c *Client) GetOrder(ctx context.Context, storeID int64, orderID string) (*model.Order, error) {
	var order model.Order
	if err := c.get(ctx, storeID, "/orders/"+orderID+".json", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetCustomer fetches a customer by id
func (c *Client) GetCustomer(ctx context.Context, storeID int64, customerID string) (*model.Customer, error) {
	var customer model.Customer
	if err := c.get(ctx, storeID, "/customers/"+customerID+".json", &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) get(ctx context.Context, storeID int64, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("ecom: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Store-ID", strconv.FormatInt(storeID, 10))
	if c.accessToken != "" {
		req.Header.Set("X-Access-Token", c.accessToken)
		req.Header.Set("X-My-ID", c.appID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ecom: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: GET %s status %d", ErrUnauthenticated, path, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ecom: GET %s status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ecom: decode %s response: %w", path, err)
	}
	return nil
}
