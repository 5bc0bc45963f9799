package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/auth"
	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Pagination *service.Pagination `json:"pagination"`
	Error      *ErrorBody          `json:"error"`
	Metadata   Metadata            `json:"metadata"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeData[T any](t *testing.T, resp testResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testAPI wires real services over a fresh store.
type testAPI struct {
	store   *store.Store
	handler http.Handler
	tokens  *auth.TokenIssuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	s := store.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	products := service.NewProductService(s, log)
	orders := service.NewOrderService(s, log)
	carts := service.NewCartService(s, orders, cache.NopCache{}, log)
	users := service.NewUserService(s, tokens, log).WithCarts(carts).WithBcryptCost(bcrypt.MinCost)

	handler := NewRouter(Handlers{
		Products:   NewProductHandler(products, log),
		Users:      NewUserHandler(users, log),
		Orders:     NewOrderHandler(orders, log),
		Cart:       NewCartHandler(carts, log),
		Categories: NewCategoryHandler(service.NewCategoryService(s, products, log), log),
		Reviews:    NewReviewHandler(service.NewReviewService(s, log), log),
		Payments:   NewPaymentHandler(service.NewPaymentService(s, service.NewSimulatedGateway(service.AlwaysApprove{}), log), log),
		Shipping:   NewShippingHandler(service.NewShippingService(s, log), log),
		Analytics:  NewAnalyticsHandler(service.NewAnalyticsService(s), log),
	}, RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20}, log)

	return &testAPI{store: s, handler: handler, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec, decodeResponse(t, rec)
}

func httptestRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

func serve(a *testAPI, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
