package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/fee"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actor = domain.Actor{AttendantID: "att-1", ContractorID: "con-1", Token: "secret-token"}

func fastRetries() *RetryConfig {
	return &RetryConfig{
		MaxRetries:           2,
		InitialInterval:      time.Millisecond,
		MaxInterval:          5 * time.Millisecond,
		Multiplier:           2,
		MaxElapsedTime:       time.Second,
		RetryableStatusCodes: []int{http.StatusBadGateway, http.StatusServiceUnavailable},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL+"/"), WithRetryConfig(fastRetries()))
}

func TestGetRates(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantTable *fee.RateTable
		wantErr   bool
		wantKind  fee.ErrorKind
	}{
		{
			name:   "configured",
			status: http.StatusOK,
			body: `{"rates_2wheeler":{"upTo2Hours":2,"upTo6Hours":4,"upTo12Hours":6,"upTo24Hours":8},
			        "rates_4wheeler":{"upTo2Hours":5,"upTo6Hours":10,"upTo12Hours":15,"upTo24Hours":20}}`,
			wantTable: &fee.RateTable{
				TwoWheeler:  fee.RateTier{UpTo2Hours: 2, UpTo6Hours: 4, UpTo12Hours: 6, UpTo24Hours: 8},
				FourWheeler: fee.RateTier{UpTo2Hours: 5, UpTo6Hours: 10, UpTo12Hours: 15, UpTo24Hours: 20},
			},
		},
		{name: "not found means not configured", status: http.StatusNotFound, body: `{"error":"no rates"}`},
		{name: "null body means not configured", status: http.StatusOK, body: `null`},
		{name: "empty object means not configured", status: http.StatusOK, body: `{}`},
		{
			name:     "missing field",
			status:   http.StatusOK,
			body:     `{"rates_2wheeler":{"upTo2Hours":2,"upTo6Hours":4,"upTo24Hours":8},"rates_4wheeler":{"upTo2Hours":5,"upTo6Hours":10,"upTo12Hours":15,"upTo24Hours":20}}`,
			wantErr:  true,
			wantKind: fee.InvalidRateTable,
		},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/contractors/con-1/rates", r.URL.Path)
				assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			table, err := c.GetRates(context.Background(), actor, "con-1")
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantKind != "" {
					assert.Equal(t, tt.wantKind, fee.KindOf(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTable, table)
		})
	}
}

func TestGetRates_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`null`))
	})

	table, err := c.GetRates(context.Background(), actor, "con-1")
	require.NoError(t, err)
	assert.Nil(t, table)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetRates_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetRates(context.Background(), actor, "con-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retryable status code: 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetVehicle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicles/veh-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"veh-1","plate_number":"KA01AB1234","vehicle_type":"4-wheeler","check_in_time":"2024-01-15T10:00:00.000Z"}`))
	})

	v, err := c.GetVehicle(context.Background(), actor, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, "KA01AB1234", v.PlateNumber)
	assert.Equal(t, "2024-01-15T10:00:00.000Z", v.CheckInTime)

	_, err = c.GetVehicle(context.Background(), actor, "veh-2")
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestCheckout(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/vehicles/veh-1/checkout", r.URL.Path)

		var req domain.CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.CheckoutRequest{
			CheckOutTime:  "2024-01-15T13:30:00.000Z",
			PaymentAmount: 0,
			PaymentMethod: domain.PaymentFree,
		}, req)

		_, _ = w.Write([]byte(`{"vehicle":{"id":"veh-1","plate_number":"KA01AB1234","status":"checked_out"},"receipt_id":"R-9"}`))
	})

	resp, err := c.Checkout(context.Background(), actor, "veh-1", domain.CheckoutRequest{
		CheckOutTime:  "2024-01-15T13:30:00.000Z",
		PaymentAmount: 0,
		PaymentMethod: domain.PaymentFree,
	})
	require.NoError(t, err)
	assert.Equal(t, "R-9", resp.ReceiptID)
	assert.Equal(t, "checked_out", resp.Vehicle.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckout_IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`maintenance`))
	})

	_, err := c.Checkout(context.Background(), actor, "veh-1", domain.CheckoutRequest{PaymentMethod: domain.PaymentCash})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "maintenance", httpErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}
