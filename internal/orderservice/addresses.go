package orderservice

import (
	"context"
	"net/http"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

// SaveAddress stores a new address for a user
func (c *Client) SaveAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	var out domain.ShippingAddress
	if err := c.doJSON(ctx, "save address", http.MethodPost, "/save-address", addr, &out, nil); err != nil {
		return domain.ShippingAddress{}, err
	}
	return out, nil
}

// SavedAddresses lists a user's saved addresses
func (c *Client) SavedAddresses(ctx context.Context, userID string) ([]domain.ShippingAddress, error) {
	var out []domain.ShippingAddress
	if err := c.doJSON(ctx, "saved addresses", http.MethodGet, pathf("/saved-addresses/%s", userID), nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAddress replaces a saved address
func (c *Client) UpdateAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	var out domain.ShippingAddress
	err := c.doJSON(ctx, "update address", http.MethodPut, pathf("/update-address/%s", addr.ID), addr, &out, nil)
	if err != nil {
		return domain.ShippingAddress{}, notFoundAs(err, "address", addr.ID)
	}
	return out, nil
}

// DeleteAddress removes a saved address
func (c *Client) DeleteAddress(ctx context.Context, addressID string) error {
	err := c.doJSON(ctx, "delete address", http.MethodDelete, pathf("/delete-address/%s", addressID), nil, nil, nil)
	return notFoundAs(err, "address", addressID)
}

type setDefaultRequest struct {
	UserID string `json:"userId"`
}

// SetDefaultAddress makes an address the user's default
func (c *Client) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	err := c.doJSON(ctx, "set default address", http.MethodPatch, pathf("/set-default-address/%s", addressID),
		setDefaultRequest{UserID: userID}, nil, nil)
	return notFoundAs(err, "address", addressID)
}
