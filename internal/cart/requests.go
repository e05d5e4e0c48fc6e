package cart

import (
	"strconv"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

type AddItemRequest struct {
	ProductID string
	Quantity  int
}

// NewAddItemRequest never fails on quantity: missing, malformed or non-positive
// input becomes 1.
func NewAddItemRequest(productID, rawQuantity string) (AddItemRequest, error) {
	req := AddItemRequest{ProductID: strings.TrimSpace(productID), Quantity: 1}
	if req.ProductID == "" {
		return req, &validation.Error{Fields: map[string]string{"product_id": "This field is required."}}
	}
	if q, err := strconv.Atoi(strings.TrimSpace(rawQuantity)); err == nil && q >= 1 {
		req.Quantity = q
	}
	return req, nil
}

type UpdateItemRequest struct {
	LineID   string
	Quantity int
}

// NewUpdateItemRequest keeps zero and negative quantities; the service turns
// them into a removal. A missing quantity means 1.
func NewUpdateItemRequest(lineID, rawQuantity string) (UpdateItemRequest, error) {
	req := UpdateItemRequest{LineID: strings.TrimSpace(lineID), Quantity: 1}

	v := &validation.Error{}
	if req.LineID == "" {
		v.Add("line_id", "This field is required.")
	}
	if raw := strings.TrimSpace(rawQuantity); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("quantity", "Please enter a valid number")
		} else {
			req.Quantity = q
		}
	}
	return req, v.Err()
}
