package orderservice

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// PlaceOrderRequest is the place-order payload
type PlaceOrderRequest struct {
	CustomerID     string                 `json:"customerId"`
	ShippingInfo   domain.ShippingAddress `json:"shippingInfo"`
	Products       []domain.CartLine      `json:"products"`
	SubOrders      []domain.SubOrder      `json:"subOrders"`
	Price          int64                  `json:"price"`
	ShippingFee    int64                  `json:"shippingFee"`
	TotalPrice     int64                  `json:"totalPrice"`
	PaymentMethod  domain.PaymentMethod   `json:"paymentMethod"`
	PaymentStatus  domain.PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus domain.DeliveryStatus  `json:"deliveryStatus"`
}

// NewPlaceOrderRequest flattens an order into the place-order payload
func NewPlaceOrderRequest(order domain.Order) PlaceOrderRequest {
	req := PlaceOrderRequest{
		CustomerID:     order.CustomerID,
		ShippingInfo:   order.ShippingAddress,
		SubOrders:      order.SubOrders,
		Price:          order.ItemsPrice,
		ShippingFee:    order.ShippingFee,
		TotalPrice:     order.TotalPrice,
		PaymentMethod:  order.PaymentMethod,
		PaymentStatus:  order.PaymentStatus,
		DeliveryStatus: order.DeliveryStatus,
	}
	for _, so := range order.SubOrders {
		req.Products = append(req.Products, so.Lines...)
	}
	return req
}

type placeOrderResponse struct {
	OrderID string `json:"orderId"`
}

// PlaceOrder creates the order and its suborders in one call.
// idempotencyKey is sent so a retried attempt cannot create a second order.
func (c *Client) PlaceOrder(ctx context.Context, order domain.Order, idempotencyKey string) (string, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{IdempotencyKeyHeader: idempotencyKey}
	}
	var out placeOrderResponse
	if err := c.doJSON(ctx, "place order", http.MethodPost, "/place-order", NewPlaceOrderRequest(order), &out, headers); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", &errors.ErrRemote{Op: "place order", Status: http.StatusOK, Body: "response missing orderId"}
	}
	return out.OrderID, nil
}

// ConfirmCOD records the customer's intent to pay on delivery
func (c *Client) ConfirmCOD(ctx context.Context, orderID string) error {
	return c.doJSON(ctx, "confirm cod", http.MethodPatch, pathf("/confirm-cod/%s", orderID), nil, nil, nil)
}

type confirmCardRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmCard marks an order paid by the given payment intent
func (c *Client) ConfirmCard(ctx context.Context, orderID, paymentIntentID string) error {
	return c.doJSON(ctx, "confirm card", http.MethodPatch, pathf("/confirm-card/%s", orderID),
		confirmCardRequest{PaymentIntentID: paymentIntentID}, nil, nil)
}

// ListOrders lists a customer's orders, optionally filtered by delivery status
func (c *Client) ListOrders(ctx context.Context, customerID, status string) ([]domain.Order, error) {
	q := url.Values{}
	q.Set("customerId", customerID)
	if status != "" {
		q.Set("status", status)
	}
	var out []domain.Order
	if err := c.doJSON(ctx, "list orders", http.MethodGet, "/orders?"+q.Encode(), nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderDetails fetches one order with its suborders
func (c *Client) OrderDetails(ctx context.Context, orderID string) (*domain.Order, error) {
	var out domain.Order
	err := c.doJSON(ctx, "order details", http.MethodGet, pathf("/order-details/%s", orderID), nil, &out, nil)
	if err != nil {
		return nil, notFoundAs(err, "order", orderID)
	}
	return &out, nil
}

func notFoundAs(err error, resource, id string) error {
	var remote *errors.ErrRemote
	if stderrors.As(err, &remote) && remote.Status == http.StatusNotFound {
		return &errors.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}
