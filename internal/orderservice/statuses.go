package orderservice

import (
	"context"
	"net/http"
)

// DeliveryStatuses fetches the delivery status code to label table
func (c *Client) DeliveryStatuses(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := c.doJSON(ctx, "delivery statuses", http.MethodGet, "/delivery-statuses", nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentStatuses fetches the payment status code to label table
func (c *Client) PaymentStatuses(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := c.doJSON(ctx, "payment statuses", http.MethodGet, "/payment-statuses", nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}
