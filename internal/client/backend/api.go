package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"parkflow/internal/domain"
	"parkflow/internal/fee"
	"parkflow/internal/logger"

	"go.uber.org/zap"
)

// ErrVehicleNotFound is returned by GetVehicle for an unknown vehicle.
var ErrVehicleNotFound = errors.New("vehicle not found")

// GetRates returns the contractor's rate table, or nil when none is configured.
func (c *Client) GetRates(ctx context.Context, actor domain.Actor, contractorID string) (*fee.RateTable, error) {
	path := fmt.Sprintf("/contractors/%s/rates", url.PathEscape(contractorID))
	resp, err := c.DoRequest(ctx, http.MethodGet, path, nil, WithBearerToken(actor.Token))
	if err != nil {
		var httpErr *HTTPError
		closeBody(resp)
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("Client.GetRates: %w", err)
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("Client.GetRates: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var lookup domain.RateLookup
	if err := json.Unmarshal(raw, &lookup); err != nil {
		return nil, fmt.Errorf("Client.GetRates: failed to decode backend response: %w", err)
	}
	if !lookup.Configured() {
		return nil, nil
	}
	table, err := lookup.Table()
	if err != nil {
		logger.Warn("Backend returned an invalid rate table",
			zap.String("contractor_id", contractorID), zap.Error(err))
		return nil, err
	}
	return table, nil
}

// GetVehicle fetches a parked vehicle's record.
func (c *Client) GetVehicle(ctx context.Context, actor domain.Actor, vehicleID string) (*domain.Vehicle, error) {
	path := fmt.Sprintf("/vehicles/%s", url.PathEscape(vehicleID))
	resp, err := c.DoRequest(ctx, http.MethodGet, path, nil, WithBearerToken(actor.Token))
	if err != nil {
		closeBody(resp)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("Client.GetVehicle: %w", err)
	}

	var v domain.Vehicle
	if err := decodeJSON(resp, &v); err != nil {
		return nil, fmt.Errorf("Client.GetVehicle: %w", err)
	}
	return &v, nil
}

// Checkout persists the checkout. It is never retried.
func (c *Client) Checkout(ctx context.Context, actor domain.Actor, vehicleID string, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	path := fmt.Sprintf("/vehicles/%s/checkout", url.PathEscape(vehicleID))
	resp, err := c.DoRequest(ctx, http.MethodPost, path, req, WithBearerToken(actor.Token))
	if err != nil {
		closeBody(resp)
		return nil, fmt.Errorf("Client.Checkout: %w", err)
	}

	var out domain.CheckoutResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("Client.Checkout: %w", err)
	}
	return &out, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}
	return b, nil
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
