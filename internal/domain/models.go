package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one product variant in a customer's cart
type CartLine struct {
	LineID         string  `json:"lineId"`
	ProductID      string  `json:"productId"`
	ShopID         string  `json:"shopId"`
	ShopName       string  `json:"shopName"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPrice      int64   `json:"unitPrice"`
	DiscountPct    float64 `json:"discountPct"`
	ColorVariant   *string `json:"colorVariant,omitempty"`
	SizeVariant    *string `json:"sizeVariant,omitempty"`
	StockAvailable int     `json:"stockAvailable"`
}

// InStock reports whether the line can be purchased at all
func (l CartLine) InStock() bool {
	return l.StockAvailable > 0
}

// ShopGroup groups the purchasable lines of one seller
type ShopGroup struct {
	ShopID   string     `json:"shopId"`
	ShopName string     `json:"shopName"`
	Lines    []CartLine `json:"lines"`
}

// CartSummary is derived from cart lines and never edited directly
type CartSummary struct {
	TotalPrice      int64 `json:"totalPrice"`
	TotalItems      int   `json:"totalItems"`
	ShippingFee     int64 `json:"shippingFee"`
	OutOfStockCount int   `json:"outOfStockCount"`
	BuyableItems    int   `json:"buyableItems"`
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"userId,omitempty"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AddressLine  string `json:"addressLine"`
	ProvinceName string `json:"provinceName"`
	ProvinceCode string `json:"provinceCode"`
	DistrictName string `json:"districtName"`
	DistrictCode string `json:"districtCode"`
	WardName     string `json:"wardName"`
	WardCode     string `json:"wardCode"`
	PostalCode   string `json:"postalCode,omitempty"`
	IsDefault    bool   `json:"isDefault"`
}

// Order is a customer order spanning one or more sellers
type Order struct {
	OrderID         string          `json:"orderId"`
	CustomerID      string          `json:"customerId"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	SubOrders       []SubOrder      `json:"subOrders"`
	ItemsPrice      int64           `json:"itemsPrice"`
	ShippingFee     int64           `json:"shippingFee"`
	TotalPrice      int64           `json:"totalPrice"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus  DeliveryStatus  `json:"deliveryStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// LineIDs returns the cart line ids covered by the order
func (o Order) LineIDs() []string {
	var ids []string
	for _, so := range o.SubOrders {
		for _, l := range so.Lines {
			ids = append(ids, l.LineID)
		}
	}
	return ids
}

// SubOrder is the part of an order fulfilled by one seller
type SubOrder struct {
	ShopID         string         `json:"shopId"`
	ShopName       string         `json:"shopName"`
	Lines          []CartLine     `json:"lines"`
	Price          int64          `json:"price"`
	ShippingFee    int64          `json:"shippingFee"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
}

// PaymentIntent is the gateway's record of a card charge attempt
type PaymentIntent struct {
	ID               string `json:"id"`
	ClientSecret     string `json:"clientSecret"`
	OrderID          string `json:"orderId"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
}

// Region is a province, district or ward from the geography directory
type Region struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ParentCode string `json:"parentCode,omitempty"`
}

// StatusVocabulary translates raw status codes to display labels
type StatusVocabulary struct {
	DeliveryStatuses map[string]string `json:"deliveryStatuses"`
	PaymentStatuses  map[string]string `json:"paymentStatuses"`
}

// DeliveryLabel returns the label for a delivery status, or the code itself
func (v StatusVocabulary) DeliveryLabel(code DeliveryStatus) string {
	if label, ok := v.DeliveryStatuses[string(code)]; ok {
		return label
	}
	return string(code)
}

// PaymentLabel returns the label for a payment status, or the code itself
func (v StatusVocabulary) PaymentLabel(code PaymentStatus) string {
	if label, ok := v.PaymentStatuses[string(code)]; ok {
		return label
	}
	return string(code)
}

// IdempotencyKey stores idempotency information for order placement
type IdempotencyKey struct {
	Key         string
	CustomerID  string
	OrderID     string
	RequestHash string
	CreatedAt   time.Time
}

// CheckoutEvent represents an audit event for a checkout
type CheckoutEvent struct {
	ID         uuid.UUID
	OrderID    string
	CustomerID string
	EventType  string
	EventData  map[string]interface{} // JSONB
	CreatedAt  time.Time
}

// Checkout event types
const (
	EventOrderPlaced          = "order_placed"
	EventPlacementFailed      = "placement_failed"
	EventIntentCreated        = "payment_intent_created"
	EventPaymentVerified      = "payment_verified"
	EventPaymentReconciled    = "payment_reconciled"
	EventReconciliationFailed = "reconciliation_failed"
	EventCODConfirmed         = "cod_confirmed"
	EventCODFailed            = "cod_failed"
)
