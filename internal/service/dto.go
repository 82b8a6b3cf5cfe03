package service

import (
	"github.com/jafarshop/storefront-checkout/internal/domain"
)

// ShippingAddressRequest is a shipping address as posted by the storefront.
// The "mobile" tag is registered on the binding validator at startup.
type ShippingAddressRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required,mobile"`
	AddressLine  string `json:"addressLine" binding:"required"`
	ProvinceCode string `json:"provinceCode" binding:"required"`
	ProvinceName string `json:"provinceName"`
	DistrictCode string `json:"districtCode" binding:"required"`
	DistrictName string `json:"districtName"`
	WardCode     string `json:"wardCode" binding:"required"`
	WardName     string `json:"wardName"`
	PostalCode   string `json:"postalCode"`
	IsDefault    bool   `json:"isDefault"`
}

// ToDomain converts the request to a domain address
func (r ShippingAddressRequest) ToDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:         r.Name,
		Phone:        r.Phone,
		AddressLine:  r.AddressLine,
		ProvinceCode: r.ProvinceCode,
		ProvinceName: r.ProvinceName,
		DistrictCode: r.DistrictCode,
		DistrictName: r.DistrictName,
		WardCode:     r.WardCode,
		WardName:     r.WardName,
		PostalCode:   r.PostalCode,
		IsDefault:    r.IsDefault,
	}
}

// PlaceOrderRequest represents the checkout submission payload.
// LineIDs narrows the order to some cart lines; empty means the whole cart.
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required,oneof=cod card"`
	LineIDs         []string               `json:"lineIds"`
}

// CartMutationRequest changes one line's quantity by one
type CartMutationRequest struct {
	Op string `json:"op" binding:"required,oneof=increment decrement"`
}

// SelectRegionRequest picks a province, district or ward
type SelectRegionRequest struct {
	Code string `json:"code" binding:"required"`
}

// OrderRefRequest names an order to pay for
type OrderRefRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// VerifyPaymentRequest carries the client secret the gateway appended to the return URL
type VerifyPaymentRequest struct {
	ClientSecret string `json:"clientSecret" binding:"required"`
}
