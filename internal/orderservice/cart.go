package orderservice

import (
	"context"
	"net/http"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

// CartLines fetches a customer's cart with live stock
func (c *Client) CartLines(ctx context.Context, customerID string) ([]domain.CartLine, error) {
	var out []domain.CartLine
	if err := c.doJSON(ctx, "get cart", http.MethodGet, pathf("/cart/%s", customerID), nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateLineQuantity sets a line's quantity and returns the line as stored
func (c *Client) UpdateLineQuantity(ctx context.Context, customerID, lineID string, quantity int) (domain.CartLine, error) {
	var out domain.CartLine
	err := c.doJSON(ctx, "update cart line", http.MethodPatch, pathf("/cart/%s/lines/%s", customerID, lineID),
		updateLineRequest{Quantity: quantity}, &out, nil)
	if err != nil {
		return domain.CartLine{}, notFoundAs(err, "cart line", lineID)
	}
	return out, nil
}

// RemoveLine deletes a line from the cart
func (c *Client) RemoveLine(ctx context.Context, customerID, lineID string) error {
	err := c.doJSON(ctx, "remove cart line", http.MethodDelete, pathf("/cart/%s/lines/%s", customerID, lineID), nil, nil, nil)
	return notFoundAs(err, "cart line", lineID)
}
