package draft

import (
	"time"

	"github.com/MrJamesThe3rd/supiri/internal/draft"
)

type lineResponse struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Total    int64  `json:"total"`
}

type draftResponse struct {
	ID            string         `json:"id"`
	Step          string         `json:"step"`
	CustomerID    int64          `json:"customer_id,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	SaleDate      string         `json:"sale_date"`
	Lines         []lineResponse `json:"lines"`
	Subtotal      int64          `json:"subtotal"`
	Discount      int64          `json:"discount"`
	Tax           int64          `json:"tax"`
	FinalAmount   int64          `json:"final_amount"`
	PaymentAmount int64          `json:"payment_amount"`
	PaymentMethod string         `json:"payment_method"`
	PaymentStatus string         `json:"payment_status"`
	Notes         string         `json:"notes,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toResponse(d *draft.Draft) draftResponse {
	resp := draftResponse{
		ID:            d.ID.String(),
		Step:          d.Step.String(),
		CustomerID:    d.CustomerID,
		CustomerName:  d.CustomerName,
		SaleDate:      d.SaleDate.Format(time.DateOnly),
		Lines:         make([]lineResponse, len(d.Lines)),
		Subtotal:      d.Subtotal(),
		Discount:      d.Discount,
		Tax:           d.Tax,
		FinalAmount:   d.FinalAmount(),
		PaymentAmount: d.PaymentAmount,
		PaymentMethod: string(d.PaymentMethod),
		PaymentStatus: string(d.PaymentStatus()),
		Notes:         d.Notes,
		UpdatedAt:     d.UpdatedAt,
	}

	for i, l := range d.Lines {
		resp.Lines[i] = lineResponse(l)
	}

	return resp
}

type commitResponse struct {
	SaleID        int64  `json:"sale_id"`
	FinalAmount   int64  `json:"final_amount"`
	AmountPaid    int64  `json:"amount_paid"`
	PaymentStatus string `json:"payment_status"`
	ItemCount     int    `json:"item_count"`
}
