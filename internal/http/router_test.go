package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	api "github.com/MrJamesThe3rd/supiri/internal/http"
	customerhttp "github.com/MrJamesThe3rd/supiri/internal/http/customer"
	drafthttp "github.com/MrJamesThe3rd/supiri/internal/http/draft"
	itemhttp "github.com/MrJamesThe3rd/supiri/internal/http/item"
	salehttp "github.com/MrJamesThe3rd/supiri/internal/http/sale"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/memstore"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	st := memstore.New()
	customers := customer.NewService(st)
	items := item.NewService(st)
	ledger := sale.NewLedger(st, customers, nil)
	drafts := draft.NewService(draft.NewMemoryStore(time.Hour), ledger, customers, items, nil)

	return api.New(
		api.Options{AllowedOrigins: []string{"*"}},
		customerhttp.NewHandler(customers),
		itemhttp.NewHandler(items),
		salehttp.NewHandler(ledger, items),
		drafthttp.NewHandler(drafts),
	)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if buf.Len() > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())

	return v
}

type idBody struct {
	ID int64 `json:"id"`
}

type saleBody struct {
	ID            int64  `json:"id"`
	Subtotal      int64  `json:"subtotal"`
	Discount      int64  `json:"discount"`
	Tax           int64  `json:"tax"`
	FinalAmount   int64  `json:"final_amount"`
	AmountPaid    int64  `json:"amount_paid"`
	PaymentStatus string `json:"payment_status"`
	ItemCount     int    `json:"item_count"`
	Customer      *struct {
		Name string `json:"name"`
	} `json:"customer"`
	Items []struct {
		ID    int64 `json:"id"`
		Price int64 `json:"price"`
		Total int64 `json:"total"`
	} `json:"items"`
	Payments []idBody `json:"payments"`
}

// seed creates a customer and an item priced at 100.00 and returns their IDs.
func seed(t *testing.T, h http.Handler) (customerID, itemID int64) {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Nimal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customerID = decode[idBody](t, rec).ID

	rec = do(t, h, http.MethodPost, "/api/v1/items", map[string]any{"name": "Rice 5kg", "price": 10000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID = decode[idBody](t, rec).ID

	return customerID, itemID
}

func TestRouter_SaleLifecycle(t *testing.T) {
	h := newTestRouter(t)
	customerID, itemID := seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sales", map[string]any{"customer_id": customerID, "sale_date": "2024-05-14"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saleID := decode[idBody](t, rec).ID
	salePath := "/api/v1/sales/" + strconv.FormatInt(saleID, 10)

	rec = do(t, h, http.MethodPost, salePath+"/items", map[string]any{"item_id": itemID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, salePath+"/payments", map[string]any{"amount": 12000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[saleBody](t, do(t, h, http.MethodGet, salePath, nil))
	assert.Equal(t, int64(20000), got.FinalAmount)
	assert.Equal(t, string(sale.StatusPartiallyPaid), got.PaymentStatus)

	rec = do(t, h, http.MethodPost, salePath+"/payments", map[string]any{"amount": 8000, "method": "credit_card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got = decode[saleBody](t, do(t, h, http.MethodGet, salePath, nil))
	assert.Equal(t, int64(20000), got.Subtotal)
	assert.Equal(t, int64(20000), got.AmountPaid)
	assert.Equal(t, string(sale.StatusPaid), got.PaymentStatus)
	assert.Equal(t, 1, got.ItemCount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(10000), got.Items[0].Price, "unit price defaults to the catalogue price")
	assert.Len(t, got.Payments, 2)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "Nimal", got.Customer.Name)

	linePath := "/api/v1/line-items/" + strconv.FormatInt(got.Items[0].ID, 10)

	rec = do(t, h, http.MethodPatch, linePath, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got = decode[saleBody](t, do(t, h, http.MethodGet, salePath, nil))
	assert.Equal(t, int64(30000), got.FinalAmount)
	assert.Equal(t, string(sale.StatusPartiallyPaid), got.PaymentStatus)

	rec = do(t, h, http.MethodDelete, linePath, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	got = decode[saleBody](t, do(t, h, http.MethodGet, salePath, nil))
	assert.Equal(t, int64(0), got.FinalAmount)
	assert.Equal(t, string(sale.StatusUnpaid), got.PaymentStatus)

	rec = do(t, h, http.MethodDelete, salePath, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, salePath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_DiscountAndTax(t *testing.T) {
	h := newTestRouter(t)
	customerID, itemID := seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sales", map[string]any{"customer_id": customerID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	salePath := "/api/v1/sales/" + strconv.FormatInt(decode[idBody](t, rec).ID, 10)

	rec = do(t, h, http.MethodPost, salePath+"/items", map[string]any{"item_id": itemID, "quantity": 5, "unit_price": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, salePath+"/discount", map[string]any{"amount": 50})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, salePath+"/tax", map[string]any{"amount": 45})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[saleBody](t, rec)
	assert.Equal(t, int64(500), got.Subtotal)
	assert.Equal(t, int64(495), got.FinalAmount)

	rec = do(t, h, http.MethodPut, salePath+"/discount", map[string]any{"amount": 501})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	got = decode[saleBody](t, do(t, h, http.MethodPost, salePath+"/recompute", nil))
	assert.Equal(t, int64(50), got.Discount, "rejected discount leaves the sale unchanged")
	assert.Equal(t, int64(495), got.FinalAmount)
}

func TestRouter_ErrorStatus(t *testing.T) {
	h := newTestRouter(t)
	customerID, _ := seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sales", map[string]any{"customer_id": customerID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	salePath := "/api/v1/sales/" + strconv.FormatInt(decode[idBody](t, rec).ID, 10)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"UnknownSale", http.MethodGet, "/api/v1/sales/999", nil, http.StatusNotFound},
		{"BadSaleID", http.MethodGet, "/api/v1/sales/abc", nil, http.StatusBadRequest},
		{"MalformedBody", http.MethodPost, "/api/v1/sales", "{", http.StatusBadRequest},
		{"MissingCustomer", http.MethodPost, "/api/v1/sales", map[string]any{"notes": "x"}, http.StatusUnprocessableEntity},
		{"BadDate", http.MethodPost, "/api/v1/sales", map[string]any{"customer_id": customerID, "sale_date": "14/05/2024"}, http.StatusUnprocessableEntity},
		{"UnknownItem", http.MethodPost, salePath + "/items", map[string]any{"item_id": 404}, http.StatusNotFound},
		{"NegativeQuantity", http.MethodPost, salePath + "/items", map[string]any{"item_id": 1, "quantity": -1, "unit_price": 10}, http.StatusUnprocessableEntity},
		{"ZeroPayment", http.MethodPost, salePath + "/payments", map[string]any{"amount": 0}, http.StatusUnprocessableEntity},
		{"UnknownMethod", http.MethodPost, salePath + "/payments", map[string]any{"amount": 10, "method": "barter"}, http.StatusUnprocessableEntity},
		{"UnknownStatusFilter", http.MethodGet, "/api/v1/sales?status=Overdue", nil, http.StatusUnprocessableEntity},
		{"GarbageFromFilter", http.MethodGet, "/api/v1/sales?from=garbage", nil, http.StatusBadRequest},
		{"GarbageToFilter", http.MethodGet, "/api/v1/sales?to=2024-13-40", nil, http.StatusBadRequest},
		{"GarbagePage", http.MethodGet, "/api/v1/sales?page=two", nil, http.StatusBadRequest},
		{"NegativeLimit", http.MethodGet, "/api/v1/sales?limit=-5", nil, http.StatusBadRequest},
		{"GarbageCustomerFilter", http.MethodGet, "/api/v1/sales?customer_id=x1", nil, http.StatusBadRequest},
		{"UnknownLineItem", http.MethodDelete, "/api/v1/line-items/77", nil, http.StatusNotFound},
		{"UnknownPayment", http.MethodDelete, "/api/v1/payments/77", nil, http.StatusNotFound},
		{"ItemWithoutPrice", http.MethodPost, "/api/v1/items", map[string]any{"name": "Free"}, http.StatusUnprocessableEntity},
		{"BadDraftID", http.MethodGet, "/api/v1/drafts/not-a-uuid", nil, http.StatusBadRequest},
		{"UnknownDraft", http.MethodGet, "/api/v1/drafts/6f1c8a4e-3f55-4a3b-9f4e-1d2c3b4a5e6f", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_ListSales(t *testing.T) {
	h := newTestRouter(t)
	customerID, _ := seed(t, h)

	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		rec := do(t, h, http.MethodPost, "/api/v1/sales", map[string]any{"customer_id": customerID, "sale_date": date})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/api/v1/sales?limit=2&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decode[struct {
		Sales []struct {
			SaleDate     string `json:"sale_date"`
			CustomerName string `json:"customer_name"`
		} `json:"sales"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	}](t, rec)

	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Sales, 2)
	assert.Equal(t, "2024-05-03", page.Sales[0].SaleDate)
	assert.Equal(t, "Nimal", page.Sales[0].CustomerName)

	rec = do(t, h, http.MethodGet, "/api/v1/sales?from=2024-05-02&to=2024-05-02", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[struct {
		Total int `json:"total"`
	}](t, rec).Total)
}

func TestRouter_DraftCommit(t *testing.T) {
	h := newTestRouter(t)
	customerID, itemID := seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/drafts", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	draftPath := "/api/v1/drafts/" + decode[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = do(t, h, http.MethodPost, draftPath+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "the customer step needs a customer")

	steps := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/customer", map[string]any{"customer_id": customerID}},
		{http.MethodPost, "/next", nil},
		{http.MethodPost, "/items", map[string]any{"item_id": itemID}},
		{http.MethodPost, "/items/" + strconv.FormatInt(itemID, 10) + "/increment", nil},
		{http.MethodPost, "/next", nil},
		{http.MethodPut, "/adjustments", map[string]any{"payment_amount": 12000, "payment_method": "cash"}},
	}

	for _, s := range steps {
		rec := do(t, h, s.method, draftPath+s.path, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s %s: %s", s.method, s.path, rec.Body.String())
	}

	staged := decode[struct {
		Step          string `json:"step"`
		FinalAmount   int64  `json:"final_amount"`
		PaymentStatus string `json:"payment_status"`
	}](t, do(t, h, http.MethodGet, draftPath, nil))
	assert.Equal(t, "checkout", staged.Step)
	assert.Equal(t, int64(20000), staged.FinalAmount)
	assert.Equal(t, string(sale.StatusPartiallyPaid), staged.PaymentStatus)

	rec = do(t, h, http.MethodPost, draftPath+"/commit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	committed := decode[struct {
		SaleID        int64  `json:"sale_id"`
		PaymentStatus string `json:"payment_status"`
	}](t, rec)
	assert.Equal(t, "/api/v1/sales/"+strconv.FormatInt(committed.SaleID, 10), rec.Header().Get("Location"))
	assert.Equal(t, string(sale.StatusPartiallyPaid), committed.PaymentStatus)

	rec = do(t, h, http.MethodGet, draftPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "committed drafts are cleared")
}
