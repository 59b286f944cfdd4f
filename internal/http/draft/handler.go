package draft

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/http/render"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

type Handler struct {
	svc *draft.Service
}

func NewHandler(svc *draft.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.start)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.discard)
	r.Put("/{id}/customer", h.selectCustomer)
	r.Post("/{id}/items", h.addItem)
	r.Patch("/{id}/items/{itemID}", h.setQuantity)
	r.Post("/{id}/items/{itemID}/increment", h.lineAction(h.svc.Increment))
	r.Post("/{id}/items/{itemID}/decrement", h.lineAction(h.svc.Decrement))
	r.Delete("/{id}/items/{itemID}", h.lineAction(h.svc.RemoveItem))
	r.Put("/{id}/adjustments", h.setAdjustments)
	r.Post("/{id}/next", h.step(h.svc.Next))
	r.Post("/{id}/back", h.step(h.svc.Back))
	r.Post("/{id}/commit", h.commit)
}

func draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid draft id"})
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Start(r.Context())
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Discard(r.Context(), id); err != nil {
		render.Error(w, r, err)
		return
	}

	render.NoContent(w)
}

type customerRequest struct {
	CustomerID int64 `json:"customer_id" validate:"gt=0"`
}

func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if !render.Decode(w, r, &req) {
		return
	}

	d, err := h.svc.SelectCustomer(r.Context(), id, req.CustomerID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(d))
}

type itemRequest struct {
	ItemID int64 `json:"item_id" validate:"gt=0"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !render.Decode(w, r, &req) {
		return
	}

	d, err := h.svc.AddItem(r.Context(), id, req.ItemID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(d))
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	itemID, ok := render.ID(w, r, "itemID")
	if !ok {
		return
	}

	var req quantityRequest
	if !render.Decode(w, r, &req) {
		return
	}

	d, err := h.svc.SetQuantity(r.Context(), id, itemID, req.Quantity)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) lineAction(fn func(ctx context.Context, id uuid.UUID, itemID int64) (*draft.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		itemID, ok := render.ID(w, r, "itemID")
		if !ok {
			return
		}

		d, err := fn(r.Context(), id, itemID)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, toResponse(d))
	}
}

func (h *Handler) step(fn func(ctx context.Context, id uuid.UUID) (*draft.Draft, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := draftID(w, r)
		if !ok {
			return
		}

		d, err := fn(r.Context(), id)
		if err != nil {
			render.Error(w, r, err)
			return
		}

		render.JSON(w, http.StatusOK, toResponse(d))
	}
}

type adjustmentsRequest struct {
	SaleDate      string             `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	Discount      int64              `json:"discount" validate:"gte=0"`
	Tax           int64              `json:"tax" validate:"gte=0"`
	PaymentAmount int64              `json:"payment_amount" validate:"gte=0"`
	PaymentMethod sale.PaymentMethod `json:"payment_method"`
	Notes         string             `json:"notes"`
}

func (h *Handler) setAdjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	var req adjustmentsRequest
	if !render.Decode(w, r, &req) {
		return
	}

	a := draft.Adjustments{
		Discount:      req.Discount,
		Tax:           req.Tax,
		PaymentAmount: req.PaymentAmount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}

	if req.SaleDate != "" {
		a.SaleDate, _ = time.Parse(time.DateOnly, req.SaleDate)
	}

	d, err := h.svc.SetAdjustments(r.Context(), id, a)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}

	details, err := h.svc.Commit(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	s := details.Sale

	w.Header().Set("Location", "/api/v1/sales/"+strconv.FormatInt(s.ID, 10))
	render.JSON(w, http.StatusCreated, commitResponse{
		SaleID:        s.ID,
		FinalAmount:   s.FinalAmount,
		AmountPaid:    s.AmountPaid,
		PaymentStatus: string(s.PaymentStatus),
		ItemCount:     s.ItemCount,
	})
}
