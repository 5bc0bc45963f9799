package http

import (
	"net/http"
	"testing"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testShippingAddress = domain.Address{Street: "1 Main St", City: "Springfield", Zip: "12345"}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.Metadata.RequestID)
}

func TestRouter_UnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodGet, "/api/widgets", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestRouter_PurchaseFlow(t *testing.T) {
	api := newTestAPI(t)

	rec, resp := api.do(t, http.MethodPost, "/api/categories", service.CategoryInput{Name: "Home Office"})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	category := decodeData[domain.Category](t, resp)
	assert.Equal(t, "home-office", category.Slug)

	weight := 1.0
	rec, resp = api.do(t, http.MethodPost, "/api/products", service.ProductInput{
		Name: "Desk Lamp", Price: 10, CategoryID: category.ID, Stock: 5, Weight: &weight,
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	product := decodeData[domain.Product](t, resp)

	rec, resp = api.do(t, http.MethodPost, "/api/users", service.RegisterInput{
		Email: "jane@example.com", Password: "password123", Name: "Jane",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	user := decodeData[domain.User](t, resp)
	assert.NotContains(t, string(resp.Data), "password")

	rec, resp = api.do(t, http.MethodPost, "/api/cart/"+user.ID+"/items", AddItemRequest{ProductID: product.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	cart := decodeData[service.CartView](t, resp)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, 28.09, cart.Totals.Total)

	rec, resp = api.do(t, http.MethodPost, "/api/cart/"+user.ID+"/checkout", service.CheckoutInput{ShippingAddress: testShippingAddress})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	order := decodeData[domain.Order](t, resp)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "$28.09", order.Totals.FormattedTotal)

	_, resp = api.do(t, http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, 3, decodeData[domain.Product](t, resp).Stock)

	_, resp = api.do(t, http.MethodGet, "/api/cart/"+user.ID, nil)
	assert.Equal(t, 0, decodeData[service.CartView](t, resp).ItemCount)

	rec, resp = api.do(t, http.MethodPost, "/api/payments/process", service.ProcessPaymentInput{
		OrderID: order.ID, Method: domain.PaymentMethodPayPal,
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	payment := decodeData[domain.Payment](t, resp)
	assert.Equal(t, 28.09, payment.Amount)

	rec, resp = api.do(t, http.MethodPost, "/api/payments/process", service.ProcessPaymentInput{
		OrderID: order.ID, Method: domain.PaymentMethodPayPal,
	})
	assert.Equal(t, http.StatusConflict, rec.Code, resp.Message)

	rec, resp = api.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", statusRequest{Status: domain.OrderStatusProcessing})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	rec, resp = api.do(t, http.MethodPost, "/api/shipping", service.CreateShipmentInput{OrderID: order.ID, Carrier: domain.CarrierUPS})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	shipment := decodeData[domain.Shipment](t, resp)
	require.NotEmpty(t, shipment.TrackingNumber)

	rec, resp = api.do(t, http.MethodGet, "/api/shipping/track/"+shipment.TrackingNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Equal(t, shipment.ID, decodeData[domain.Shipment](t, resp).ID)

	// shipped orders cannot be cancelled
	rec, resp = api.do(t, http.MethodPost, "/api/orders/"+order.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", resp.Error.Code)

	rec, resp = api.do(t, http.MethodGet, "/api/orders/"+order.ID+"/invoice", nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	_, resp = api.do(t, http.MethodGet, "/api/analytics/dashboard", nil)
	dashboard := decodeData[service.Dashboard](t, resp)
	assert.Equal(t, 1, dashboard.TotalOrders)
	assert.Equal(t, 1, dashboard.OrdersByStatus[domain.OrderStatusShipped])
}

func TestRouter_LoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	rec, resp := api.do(t, http.MethodPost, "/api/users", service.RegisterInput{
		Email: "sam@example.com", Password: "correct-horse", Name: "Sam",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)

	rec, _ = api.do(t, http.MethodPost, "/api/users/login", loginRequest{Email: "sam@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = api.do(t, http.MethodPost, "/api/users/login", loginRequest{Email: "sam@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	login := decodeData[service.LoginResult](t, resp)
	require.NotEmpty(t, login.Token)

	rec, _ = api.do(t, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptestRequest(t, http.MethodGet, "/api/users/me")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = serve(api, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sam@example.com", decodeData[domain.User](t, decodeResponse(t, rec)).Email)
}

func TestRouter_ProductListing(t *testing.T) {
	api := newTestAPI(t)
	for _, in := range []service.ProductInput{
		{Name: "Keyboard", Price: 49.99, Stock: 10, Featured: true},
		{Name: "Mouse", Price: 19.99, Stock: 0},
		{Name: "Monitor", Price: 199.99, Stock: 3, Tags: []string{"display"}},
	} {
		rec, resp := api.do(t, http.MethodPost, "/api/products", in)
		require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	}

	_, resp := api.do(t, http.MethodGet, "/api/products?sort=price&order=desc&inStock=true", nil)
	products := decodeData[[]domain.Product](t, resp)
	require.Len(t, products, 2)
	assert.Equal(t, "Monitor", products[0].Name)
	assert.Equal(t, 2, resp.Pagination.Total)

	_, resp = api.do(t, http.MethodGet, "/api/products/search?q=DISPLAY", nil)
	assert.Len(t, decodeData[[]domain.Product](t, resp), 1)

	_, resp = api.do(t, http.MethodGet, "/api/products/featured", nil)
	assert.Len(t, decodeData[[]domain.Product](t, resp), 1)

	rec, _ := api.do(t, http.MethodGet, "/api/products?order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/products?minPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = api.do(t, http.MethodGet, "/api/products?page=184467440737095516&limit=100", nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	assert.Empty(t, decodeData[[]domain.Product](t, resp))
	assert.Equal(t, 3, resp.Pagination.Total)
}

func TestRouter_CreateOrderInsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	rec, resp := api.do(t, http.MethodPost, "/api/products", service.ProductInput{Name: "Chair", Price: 80, Stock: 1})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	product := decodeData[domain.Product](t, resp)
	rec, resp = api.do(t, http.MethodPost, "/api/users", service.RegisterInput{Email: "kim@example.com", Password: "password123", Name: "Kim"})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	user := decodeData[domain.User](t, resp)

	rec, resp = api.do(t, http.MethodPost, "/api/orders", service.CreateOrderInput{
		UserID:          user.ID,
		Items:           []service.OrderItemInput{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testShippingAddress,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", resp.Error.Code)
	_, resp = api.do(t, http.MethodGet, "/api/products/"+product.ID, nil)
	assert.Equal(t, 1, decodeData[domain.Product](t, resp).Stock)
}
