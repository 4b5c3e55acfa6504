package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beanledger/internal/domain"
	"beanledger/internal/ledger"
	"beanledger/internal/report"
	"beanledger/internal/service"
	"beanledger/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	salesLedger := ledger.New()
	reports := report.NewEngine(salesLedger, nil, 0)
	svc := service.New(repo, salesLedger, reports, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, "135790", repo)

	return New(svc, auth, "*")
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestMenuRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestMenuListWithToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/menu", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Items []domain.MenuItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Items) == 0 {
		t.Fatalf("expected seeded menu items")
	}
}

func TestMenuCreateForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/menu", token, domain.MenuItemCreateRequest{
		ID:         "flat-white",
		Name:       "Flat White",
		Category:   domain.CategoryCoffee,
		PriceCents: 420,
	})

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier menu create, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCheckoutCancelAndReceiptFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Lines: []domain.CheckoutLine{
			{MenuItemID: "espresso", Qty: 2},
			{MenuItemID: "muffin", Qty: 1},
		},
		DiscountPercent:   10,
		PaymentMethod:     domain.PaymentMethodCash,
		CashReceivedCents: 1000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var checkout domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&checkout); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	// espresso 250 x2 + muffin 320 = 820, minus 10% = 738
	if checkout.SubtotalCents != 820 {
		t.Fatalf("expected subtotal 820, got %d", checkout.SubtotalCents)
	}
	if checkout.TotalCents != 738 {
		t.Fatalf("expected total 738, got %d", checkout.TotalCents)
	}
	if checkout.ChangeCents != 262 {
		t.Fatalf("expected change 262, got %d", checkout.ChangeCents)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/orders/"+checkout.OrderID+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var receipt domain.ReceiptResponse
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !strings.Contains(receipt.Text, "Espresso") {
		t.Fatalf("expected item name on receipt:\n%s", receipt.Text)
	}
	if strings.Contains(receipt.Text, "CANCELLED") {
		t.Fatalf("active order receipt must not carry cancel banner")
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/orders/"+checkout.OrderID+"/cancel", token, domain.CancelOrderRequest{ManagerPIN: "135790"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var cancel domain.CancelOrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&cancel); err != nil {
		t.Fatalf("decode cancel: %v", err)
	}
	if cancel.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancel.Status)
	}
	if !cancel.PaymentIndexed {
		t.Fatalf("expected payment to be found in date buckets")
	}

	// Second cancel conflicts.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/orders/"+checkout.OrderID+"/cancel", token, domain.CancelOrderRequest{ManagerPIN: "135790"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double cancel, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Receipt survives cancellation and carries the banner.
	rec = doJSON(t, api, http.MethodGet, "/api/v1/orders/"+checkout.OrderID+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt after cancel failed: %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !strings.Contains(receipt.Text, "[ ORDER CANCELLED ]") {
		t.Fatalf("expected cancel banner on receipt:\n%s", receipt.Text)
	}
}

func TestCancelWithWrongPIN(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/orders/202601010001/cancel", token, domain.CancelOrderRequest{ManagerPIN: "999000"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on wrong pin, got %d", rec.Code)
	}
}

func TestUnknownOrderReturns404(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/orders/209901010001", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDailyReportAfterCheckout(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Lines:         []domain.CheckoutLine{{MenuItemID: "latte", Qty: 1}},
		PaymentMethod: domain.PaymentMethodCard,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/daily", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily report failed: %d", rec.Code)
	}
	var summary domain.DailySummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.OrderCount != 1 {
		t.Fatalf("expected 1 order today, got %d", summary.OrderCount)
	}
	if summary.RevenueCents != 400 {
		t.Fatalf("expected revenue 400, got %d", summary.RevenueCents)
	}
}

func TestSalesExportCSV(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Lines:             []domain.CheckoutLine{{MenuItemID: "cheesecake", Qty: 1}},
		PaymentMethod:     domain.PaymentMethodCash,
		CashReceivedCents: 600,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	today := time.Now().UTC().Format("2006-01-02")
	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/export?from="+today+"&to="+today, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SUMMARY") {
		t.Fatalf("expected SUMMARY block in export:\n%s", body)
	}
	if !strings.Contains(body, "Total Orders,1") {
		t.Fatalf("expected order count in summary:\n%s", body)
	}
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed, status %d", username, rec.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return payload.AccessToken
}
