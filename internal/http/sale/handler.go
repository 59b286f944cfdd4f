package sale

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/supiri/internal/http/render"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

// ItemFinder supplies the current catalogue price when a line item is added without one.
type ItemFinder interface {
	Get(ctx context.Context, id int64) (*item.Item, error)
}

type Handler struct {
	ledger *sale.Ledger
	items  ItemFinder
}

func NewHandler(ledger *sale.Ledger, items ItemFinder) *Handler {
	return &Handler{ledger: ledger, items: items}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.updateHeader)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/items", h.addLineItem)
		r.Put("/{id}/discount", h.applyDiscount)
		r.Put("/{id}/tax", h.setTax)
		r.Post("/{id}/payments", h.recordPayment)
		r.Post("/{id}/recompute", h.recompute)
		r.Post("/{id}/recompute-payments", h.recomputePayments)
	})

	r.Patch("/line-items/{id}", h.updateLineItem)
	r.Delete("/line-items/{id}", h.removeLineItem)
	r.Delete("/payments/{id}", h.removePayment)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.DateOnly, s)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, ok := render.QueryInt(w, r, "page")
	if !ok {
		return
	}

	limit, ok := render.QueryInt(w, r, "limit")
	if !ok {
		return
	}

	customerID, ok := render.QueryInt(w, r, "customer_id")
	if !ok {
		return
	}

	from, ok := render.QueryDate(w, r, "from")
	if !ok {
		return
	}

	to, ok := render.QueryDate(w, r, "to")
	if !ok {
		return
	}

	params := sale.ListParams{
		Page:       int(min(page, math.MaxInt32)),
		Limit:      int(min(limit, math.MaxInt32)),
		Status:     sale.PaymentStatus(r.URL.Query().Get("status")),
		CustomerID: customerID,
		From:       from,
		To:         to,
	}

	result, err := h.ledger.List(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toPageResponse(result))
}

type createSaleRequest struct {
	CustomerID int64  `json:"customer_id" validate:"gt=0"`
	SaleDate   string `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	Notes      string `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !render.Decode(w, r, &req) {
		return
	}

	date, _ := parseDate(req.SaleDate)

	s, err := h.ledger.Create(r.Context(), sale.CreateParams{
		CustomerID: req.CustomerID,
		SaleDate:   date,
		Notes:      req.Notes,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toSaleResponse(s))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.ledger.Details(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toDetailsResponse(d))
}

type updateHeaderRequest struct {
	CustomerID int64   `json:"customer_id" validate:"gte=0"`
	SaleDate   string  `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	Notes      *string `json:"notes,omitempty"`
}

func (h *Handler) updateHeader(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req updateHeaderRequest
	if !render.Decode(w, r, &req) {
		return
	}

	date, _ := parseDate(req.SaleDate)

	s, err := h.ledger.UpdateHeader(r.Context(), id, sale.HeaderParams{
		CustomerID: req.CustomerID,
		SaleDate:   date,
		Notes:      req.Notes,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSaleResponse(s))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.Delete(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	render.NoContent(w)
}

type addLineItemRequest struct {
	ItemID    int64  `json:"item_id" validate:"gt=0"`
	Quantity  int64  `json:"quantity"`
	UnitPrice *int64 `json:"unit_price,omitempty"`
}

func (h *Handler) addLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req addLineItemRequest
	if !render.Decode(w, r, &req) {
		return
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}

	price := req.UnitPrice
	if price == nil {
		it, err := h.items.Get(r.Context(), req.ItemID)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		price = &it.Price
	}

	li, err := h.ledger.AddLineItem(r.Context(), id, sale.LineItemParams{
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		UnitPrice: *price,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toLineItemResponse(li))
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.ApplyDiscount)
}

func (h *Handler) setTax(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.SetTax)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, int64) (*sale.Sale, error)) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req amountRequest
	if !render.Decode(w, r, &req) {
		return
	}

	s, err := apply(r.Context(), id, req.Amount)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSaleResponse(s))
}

type recordPaymentRequest struct {
	Amount      int64              `json:"amount" validate:"gt=0"`
	PaymentDate string             `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Method      sale.PaymentMethod `json:"method"`
	Notes       string             `json:"notes"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req recordPaymentRequest
	if !render.Decode(w, r, &req) {
		return
	}

	date, _ := parseDate(req.PaymentDate)

	p, err := h.ledger.RecordPayment(r.Context(), id, sale.PaymentParams{
		Amount: req.Amount,
		Date:   date,
		Method: req.Method,
		Notes:  req.Notes,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	s, err := h.ledger.RecomputeTotals(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSaleResponse(s))
}

func (h *Handler) recomputePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	s, err := h.ledger.RecomputePaymentStatus(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSaleResponse(s))
}

type updateLineItemRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *Handler) updateLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	var req updateLineItemRequest
	if !render.Decode(w, r, &req) {
		return
	}

	li, err := h.ledger.UpdateLineItemQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toLineItemResponse(li))
}

func (h *Handler) removeLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.RemoveLineItem(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	render.NoContent(w)
}

func (h *Handler) removePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r, "id")
	if !ok {
		return
	}

	if err := h.ledger.RemovePayment(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	render.NoContent(w)
}
