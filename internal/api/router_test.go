package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkflow/internal/api/handler"
	"parkflow/internal/api/middleware"
	"parkflow/internal/checkout"
	checkoutmocks "parkflow/internal/checkout/mocks"
	"parkflow/internal/client/backend"
	"parkflow/internal/domain"
	"parkflow/internal/fee"
	"parkflow/internal/repository"
	repomocks "parkflow/internal/repository/mocks"
	"parkflow/internal/service"
	"parkflow/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "router-test-secret"

var (
	fixedNow = time.Date(2024, 1, 15, 13, 30, 0, 0, time.UTC)
	vehicle  = &domain.Vehicle{
		ID:          "veh-1",
		PlateNumber: "KA01AB1234",
		VehicleType: "4-wheeler",
		CheckInTime: "2024-01-15T10:00:00.000Z",
		Status:      "parked",
	}
	rateTable = &fee.RateTable{
		TwoWheeler:  fee.RateTier{UpTo2Hours: 2, UpTo6Hours: 4, UpTo12Hours: 6, UpTo24Hours: 8},
		FourWheeler: fee.RateTier{UpTo2Hours: 5, UpTo6Hours: 10, UpTo12Hours: 15, UpTo24Hours: 20},
	}
)

type routerFixture struct {
	engine    *gin.Engine
	rates     *checkoutmocks.MockRateProvider
	persister *checkoutmocks.MockPersister
	vehicles  *mocks.MockVehicleSource
	receipts  *repomocks.MockReceiptRepository
}

func newRouterFixture(t *testing.T, limiter *middleware.RateLimiter) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	f := &routerFixture{
		rates:     checkoutmocks.NewMockRateProvider(ctrl),
		persister: checkoutmocks.NewMockPersister(ctrl),
		vehicles:  mocks.NewMockVehicleSource(ctrl),
		receipts:  repomocks.NewMockReceiptRepository(ctrl),
	}

	ctx, cancel := context.WithCancel(context.Background())
	ws := handler.NewWebSocketManager()
	go ws.Start(ctx)

	svc := service.NewCheckoutService(service.CheckoutDeps{
		Rates:       f.rates,
		Persister:   f.persister,
		Vehicles:    f.vehicles,
		Receipts:    f.receipts,
		Broadcaster: ws,
	}, checkout.Options{RefreshInterval: time.Hour, Now: func() time.Time { return fixedNow }})

	t.Cleanup(func() {
		svc.Shutdown()
		cancel()
	})

	f.engine = SetupRouter(RouterDeps{
		AuthService:     service.NewAuthService(testSecret),
		CheckoutService: svc,
		WSManager:       ws,
		RateLimiter:     limiter,
		AllowedOrigins:  []string{"http://localhost:5173"},
	})
	return f
}

func signToken(t *testing.T, contractorID, role string) string {
	t.Helper()
	claims := service.AttendantClaims{
		ContractorID: contractorID,
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "att-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/checkouts", "", map[string]string{"vehicle_id": "veh-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkouts", "not-a-jwt", map[string]string{"vehicle_id": "veh-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_RejectsUnknownRole(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/checkouts/anything", signToken(t, "con-1", "viewer"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPI_Quote(t *testing.T) {
	f := newRouterFixture(t, nil)
	token := signToken(t, "con-1", "attendant")

	five, ten, fifteen, twenty := 5.0, 10.0, 15.0, 20.0
	body := domain.FeeQuoteDTO{
		CheckInTime:  "2024-01-15T10:00:00Z",
		CheckOutTime: "2024-01-15T13:30:00Z",
		VehicleType:  "4-wheeler",
		Rates:        domain.RawRateTier{UpTo2Hours: &five, UpTo6Hours: &ten, UpTo12Hours: &fifteen, UpTo24Hours: &twenty},
	}
	w := f.do(t, http.MethodPost, "/api/v1/fees/quote", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, 10.0, out["amount"])
	assert.Equal(t, "03:30:00", out["duration"].(map[string]any)["formatted"])

	body.VehicleType = "bus"
	w = f.do(t, http.MethodPost, "/api/v1/fees/quote", token, body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	out = decode(t, w)
	assert.Equal(t, string(fee.InvalidVehicleClass), out["kind"])
	assert.Equal(t, "vehicle_type", out["field"])
}

func TestAPI_CheckoutFlow(t *testing.T) {
	f := newRouterFixture(t, nil)
	token := signToken(t, "con-1", "attendant")

	f.vehicles.EXPECT().GetVehicle(gomock.Any(), gomock.Any(), "veh-1").Return(vehicle, nil).Times(2)
	f.rates.EXPECT().GetRates(gomock.Any(), gomock.Any(), "con-1").Return(rateTable, nil)
	f.persister.EXPECT().Checkout(gomock.Any(), gomock.Any(), "veh-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, actor domain.Actor, _ string, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
			assert.Equal(t, token, actor.Token)
			assert.Equal(t, domain.PaymentCard, req.PaymentMethod)
			assert.Equal(t, 10.0, req.PaymentAmount)
			return &domain.CheckoutResponse{Vehicle: *vehicle, ReceiptID: "SRV-1"}, nil
		})
	f.receipts.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *domain.ReceiptRecord) (*domain.ReceiptRecord, error) {
			return rec, nil
		})

	w := f.do(t, http.MethodPost, "/api/v1/checkouts", token, map[string]string{"vehicle_id": "veh-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decode(t, w)
	id := snap["id"].(string)
	assert.Equal(t, string(checkout.StateReady), snap["state"])
	assert.Equal(t, 10.0, snap["payable_amount"])

	// Opening again resumes the same session.
	w = f.do(t, http.MethodPost, "/api/v1/checkouts", token, map[string]string{"vehicle_id": "veh-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])

	w = f.do(t, http.MethodPut, "/api/v1/checkouts/"+id+"/payment-method", token, map[string]string{"payment_method": "cheque"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "checkout")

	w = f.do(t, http.MethodPut, "/api/v1/checkouts/"+id+"/payment-method", token, map[string]string{"payment_method": "card"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "card", decode(t, w)["payment_method"])

	w = f.do(t, http.MethodPost, "/api/v1/checkouts/"+id+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap = decode(t, w)
	assert.Equal(t, string(checkout.StateClosed), snap["state"])
	assert.Equal(t, "SRV-1", snap["receipt"].(map[string]any)["receipt_id"])

	// Closed sessions stay readable until swept and reject further events.
	w = f.do(t, http.MethodGet, "/api/v1/checkouts/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(checkout.StateClosed), decode(t, w)["state"])

	w = f.do(t, http.MethodPost, "/api/v1/checkouts/"+id+"/confirm", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_SessionsAreScopedToContractor(t *testing.T) {
	f := newRouterFixture(t, nil)
	own := signToken(t, "con-1", "attendant")
	other := signToken(t, "con-2", "attendant")

	f.vehicles.EXPECT().GetVehicle(gomock.Any(), gomock.Any(), "veh-1").Return(vehicle, nil)
	f.rates.EXPECT().GetRates(gomock.Any(), gomock.Any(), "con-1").Return(rateTable, nil)

	w := f.do(t, http.MethodPost, "/api/v1/checkouts", own, map[string]string{"vehicle_id": "veh-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = f.do(t, http.MethodGet, "/api/v1/checkouts/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/checkouts/"+id, own, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(checkout.StateClosed), decode(t, w)["state"])
}

func TestAPI_OpenCheckoutErrors(t *testing.T) {
	f := newRouterFixture(t, nil)
	token := signToken(t, "con-1", "attendant")

	f.vehicles.EXPECT().GetVehicle(gomock.Any(), gomock.Any(), "missing").Return(nil, backend.ErrVehicleNotFound)
	w := f.do(t, http.MethodPost, "/api/v1/checkouts", token, map[string]string{"vehicle_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	gone := *vehicle
	gone.CheckOutTime = "2024-01-15T12:00:00.000Z"
	f.vehicles.EXPECT().GetVehicle(gomock.Any(), gomock.Any(), "veh-1").Return(&gone, nil)
	w = f.do(t, http.MethodPost, "/api/v1/checkouts", token, map[string]string{"vehicle_id": "veh-1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkouts", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Receipts(t *testing.T) {
	f := newRouterFixture(t, nil)
	token := signToken(t, "con-1", "attendant")

	f.receipts.EXPECT().FindByReceiptID(gomock.Any(), "SRV-1").
		Return(&domain.ReceiptRecord{ID: 1, ContractorID: "con-1", VehicleID: "veh-1", Receipt: domain.Receipt{ReceiptID: "SRV-1"}}, nil)
	w := f.do(t, http.MethodGet, "/api/v1/receipts/SRV-1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "veh-1", decode(t, w)["vehicle_id"])

	f.receipts.EXPECT().FindByReceiptID(gomock.Any(), "nope").Return(nil, repository.ErrNotFound)
	w = f.do(t, http.MethodGet, "/api/v1/receipts/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/receipts", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.receipts.EXPECT().FindByVehicleID(gomock.Any(), "veh-1").Return([]domain.ReceiptRecord{
		{ID: 1, ContractorID: "con-1", VehicleID: "veh-1"},
		{ID: 2, ContractorID: "con-9", VehicleID: "veh-1"},
	}, nil)
	w = f.do(t, http.MethodGet, "/api/v1/receipts?vehicle_id=veh-1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.ReceiptRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ID)
}

func TestAPI_RateLimited(t *testing.T) {
	f := newRouterFixture(t, middleware.NewRateLimiter(1, 1))
	token := signToken(t, "con-1", "attendant")

	w := f.do(t, http.MethodGet, "/api/v1/checkouts/x", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/checkouts/x", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkouts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
