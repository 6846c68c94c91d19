package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/auth"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
	v1 "flowdesk/internal/infrastructure/http/v1"
	"flowdesk/internal/infrastructure/http/v1/middleware"
	"flowdesk/internal/infrastructure/storage/memory"
)

type testServer struct {
	router http.Handler
	jwt    *auth.JWTService
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memory.NewRepositories(memory.New())
	customers := customer.NewService(repos.Customers, repos.TxManager, repos.Outbox)
	services := v1.Services{
		Products:  product.NewService(repos.Products, repos.TxManager, nil, repos.Outbox),
		Customers: customers,
		Invoices:  invoice.NewService(repos.Invoices, repos.Customers, repos.Sequences, repos.TxManager, repos.Outbox),
		Sales:     sale.NewService(repos.Sales, repos.Products, customers, repos.Sequences, repos.TxManager, nil, repos.Outbox),
		Reports:   reports.NewService(repos.Reports),
	}

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("router-test-secret"))
	token, _, err := jwtSvc.GenerateToken(id.New(), "cashier")
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Services:       services,
		TokenValidator: jwtSvc,
		Idempotency:    memory.NewIdempotencyStore(time.Hour),
		Storage:        "memory",
	})
	return &testServer{router: router, jwt: jwtSvc, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createProduct(t *testing.T, sku string, stock int64, price string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":         "Item " + sku,
		"sku":          sku,
		"category":     "General",
		"sellingPrice": price,
		"costPrice":    "1",
		"stock":        stock,
		"minStock":     1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	srv.token = ""

	w := srv.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = srv.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, apperror.CodeUnauthorized, decode(t, w)["code"])
		})
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decode(t, w)["code"])

	w = srv.do(t, http.MethodGet, "/api/v1/products/"+id.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, decode(t, w)["code"])

	w = srv.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "No SKU"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	srv.createProduct(t, "DUP-1", 1, "10")
	w = srv.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Again", "sku": "dup-1", "category": "General",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, decode(t, w)["code"])
}

func TestOwnerIsolation(t *testing.T) {
	srv := newTestServer(t)
	productID := srv.createProduct(t, "MINE-1", 3, "10")

	other, _, err := srv.jwt.GenerateToken(id.New(), "someone-else")
	require.NoError(t, err)
	srv.token = other

	w := srv.do(t, http.MethodGet, "/api/v1/products/"+productID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductUpdate_StockIsNotEditable(t *testing.T) {
	srv := newTestServer(t)
	productID := srv.createProduct(t, "MUG", 5, "900")

	w := srv.do(t, http.MethodPut, "/api/v1/products/"+productID, map[string]any{
		"name":  "Enamel mug",
		"stock": 99,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Enamel mug", body["name"])
	assert.EqualValues(t, 5, body["stock"])
	assert.EqualValues(t, 2, body["version"])

	w = srv.do(t, http.MethodPut, "/api/v1/products/"+productID, map[string]any{
		"name":    "Stale edit",
		"version": 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestSaleFlow(t *testing.T) {
	srv := newTestServer(t)
	productID := srv.createProduct(t, "SKU-1", 5, "100")

	w := srv.do(t, http.MethodPost, "/api/v1/customers", map[string]any{
		"name":  "Ada Obi",
		"phone": "+2348012345678",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := decode(t, w)["id"].(string)

	w = srv.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"customerId":    customerID,
		"paymentMethod": "cash",
		"items": []map[string]any{
			{"productId": productID, "name": "Item SKU-1", "quantity": 3, "unitPrice": "99.999"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"customerId":    customerID,
		"paymentMethod": "cash",
		"items": []map[string]any{
			{"productId": productID, "name": "Item SKU-1", "quantity": 3, "unitPrice": "100"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.True(t, strings.HasPrefix(created["number"].(string), "SALE-"))
	assert.True(t, strings.HasSuffix(created["number"].(string), "-0001"))
	assert.True(t, strings.HasPrefix(created["receiptNumber"].(string), "RCP-"))
	assert.Equal(t, "300", created["total"])

	w = srv.do(t, http.MethodGet, "/api/v1/products/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["stock"])

	w = srv.do(t, http.MethodGet, "/api/v1/customers/"+customerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cust := decode(t, w)
	assert.EqualValues(t, 1, cust["totalPurchases"])
	assert.Equal(t, "300", cust["totalSpent"])

	// Not enough stock left: nothing changes.
	w = srv.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "card",
		"items": []map[string]any{
			{"productId": productID, "name": "Item SKU-1", "quantity": 3, "unitPrice": "100"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decode(t, w)["code"])

	w = srv.do(t, http.MethodPost, "/api/v1/sales/"+created["id"].(string)+"/refund", map[string]any{
		"amount": "300", "reason": "damaged",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["refunded"])

	w = srv.do(t, http.MethodGet, "/api/v1/products/"+productID, nil)
	assert.EqualValues(t, 5, decode(t, w)["stock"])

	w = srv.do(t, http.MethodGet, "/api/v1/sales/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)
	assert.EqualValues(t, 1, summary["salesCount"])
}

func TestInvoiceFlow(t *testing.T) {
	srv := newTestServer(t)
	productID := srv.createProduct(t, "SKU-INV", 10, "50")

	w := srv.do(t, http.MethodPost, "/api/v1/customers", map[string]any{
		"name":  "Bola Ade",
		"phone": "+2348099999999",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	customerID := decode(t, w)["id"].(string)

	w = srv.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customerId":   customerID,
		"paymentTerms": "net15",
		"issueDate":    time.Now().UTC().Format(time.RFC3339),
		"items": []map[string]any{
			{"productId": productID, "name": "Consulting", "quantity": 2, "unitPrice": "50"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode(t, w)
	invoiceID := inv["id"].(string)
	assert.True(t, strings.HasPrefix(inv["number"].(string), "INV-"))
	assert.Equal(t, "unpaid", inv["paymentStatus"])

	w = srv.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "40"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "partial", decode(t, w)["paymentStatus"])

	w = srv.do(t, http.MethodPut, "/api/v1/invoices/"+invoiceID, map[string]any{
		"notes":      "ring twice",
		"paidAmount": "0",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode(t, w)
	assert.Equal(t, "ring twice", edited["notes"])
	assert.Equal(t, "40", edited["paidAmount"])
	assert.Equal(t, "partial", edited["paymentStatus"])

	w = srv.do(t, http.MethodPut, "/api/v1/invoices/"+invoiceID, map[string]any{"notes": "stale", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/payments", map[string]any{"amount": "60", "method": "transfer"})
	require.Equal(t, http.StatusOK, w.Code)
	paid := decode(t, w)
	assert.Equal(t, "paid", paid["paymentStatus"])
	assert.Equal(t, "paid", paid["status"])

	w = srv.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestIdempotentReplay(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"name": "Chidi Eze", "phone": "+2348011111111"}

	first := srv.do(t, http.MethodPost, "/api/v1/customers", body, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := srv.do(t, http.MethodPost, "/api/v1/customers", body, middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := srv.do(t, http.MethodGet, "/api/v1/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])

	changed := map[string]any{"name": "Someone Else", "phone": "+2348011111111"}
	w = srv.do(t, http.MethodPost, "/api/v1/customers", changed, middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeIdempotencyMismatch, decode(t, w)["code"])
}

func TestIdempotentReplay_CapturesErrors(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"name": "Bad Phone", "phone": "abc"}

	first := srv.do(t, http.MethodPost, "/api/v1/customers", body, middleware.HeaderIdempotencyKey, "key-err")
	require.Equal(t, http.StatusBadRequest, first.Code)

	second := srv.do(t, http.MethodPost, "/api/v1/customers", body, middleware.HeaderIdempotencyKey, "key-err")
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}
