package sale

import (
	"time"

	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

type saleResponse struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	SaleDate      string    `json:"sale_date"`
	Subtotal      int64     `json:"subtotal"`
	Discount      int64     `json:"discount"`
	Tax           int64     `json:"tax"`
	FinalAmount   int64     `json:"final_amount"`
	AmountPaid    int64     `json:"amount_paid"`
	Balance       int64     `json:"balance"`
	PaymentStatus string    `json:"payment_status"`
	ItemCount     int       `json:"item_count"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toSaleResponse(s *sale.Sale) saleResponse {
	return saleResponse{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		SaleDate:      s.SaleDate.Format(time.DateOnly),
		Subtotal:      s.Subtotal,
		Discount:      s.Discount,
		Tax:           s.Tax,
		FinalAmount:   s.FinalAmount,
		AmountPaid:    s.AmountPaid,
		Balance:       s.FinalAmount - s.AmountPaid,
		PaymentStatus: string(s.PaymentStatus),
		ItemCount:     s.ItemCount,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

type lineItemResponse struct {
	ID       int64 `json:"id"`
	SaleID   int64 `json:"sale_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
	Price    int64 `json:"price"`
	Total    int64 `json:"total"`
}

func toLineItemResponse(li *sale.LineItem) lineItemResponse {
	return lineItemResponse{
		ID:       li.ID,
		SaleID:   li.SaleID,
		ItemID:   li.ItemID,
		Quantity: li.Quantity,
		Price:    li.Price,
		Total:    li.Total,
	}
}

type paymentResponse struct {
	ID          int64  `json:"id"`
	SaleID      int64  `json:"sale_id"`
	Amount      int64  `json:"amount"`
	PaymentDate string `json:"payment_date"`
	Method      string `json:"method"`
	Notes       string `json:"notes,omitempty"`
}

func toPaymentResponse(p *sale.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		SaleID:      p.SaleID,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate.Format(time.DateOnly),
		Method:      string(p.Method),
		Notes:       p.Notes,
	}
}

type customerRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type detailsResponse struct {
	saleResponse
	Customer *customerRef       `json:"customer"`
	Items    []lineItemResponse `json:"items"`
	Payments []paymentResponse  `json:"payments"`
}

func toDetailsResponse(d *sale.Details) detailsResponse {
	resp := detailsResponse{
		saleResponse: toSaleResponse(d.Sale),
		Items:        make([]lineItemResponse, len(d.Items)),
		Payments:     make([]paymentResponse, len(d.Payments)),
	}

	if d.Customer != nil {
		resp.Customer = &customerRef{
			ID:    d.Customer.ID,
			Name:  d.Customer.Name,
			Email: d.Customer.Email,
			Phone: d.Customer.Phone,
		}
	}

	for i, li := range d.Items {
		resp.Items[i] = toLineItemResponse(li)
	}

	for i, p := range d.Payments {
		resp.Payments[i] = toPaymentResponse(p)
	}

	return resp
}

type summaryResponse struct {
	saleResponse
	CustomerName string `json:"customer_name"`
}

type pageResponse struct {
	Sales      []summaryResponse `json:"sales"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

func toPageResponse(p *sale.Page) pageResponse {
	resp := pageResponse{
		Sales:      make([]summaryResponse, len(p.Sales)),
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}

	for i, s := range p.Sales {
		resp.Sales[i] = summaryResponse{saleResponse: toSaleResponse(s.Sale), CustomerName: s.CustomerName}
	}

	return resp
}
