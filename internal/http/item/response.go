package item

import (
	"time"

	"github.com/MrJamesThe3rd/supiri/internal/item"
)

type itemResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	CostPrice   int64     `json:"cost_price"`
	Quantity    int64     `json:"quantity"`
	Category    string    `json:"category,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(it *item.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		CostPrice:   it.CostPrice,
		Quantity:    it.Quantity,
		Category:    it.Category,
		SKU:         it.SKU,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toResponseList(items []*item.Item) []itemResponse {
	resp := make([]itemResponse, len(items))
	for i, it := range items {
		resp[i] = toResponse(it)
	}

	return resp
}
