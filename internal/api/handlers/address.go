package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/service"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// AddressBook is the saved-address side of the Order Service
type AddressBook interface {
	SaveAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error)
	SavedAddresses(ctx context.Context, userID string) ([]domain.ShippingAddress, error)
	UpdateAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error)
	DeleteAddress(ctx context.Context, addressID string) error
	SetDefaultAddress(ctx context.Context, userID, addressID string) error
}

// AddressChecker validates an address including its region hierarchy
type AddressChecker interface {
	Validate(ctx context.Context, addr domain.ShippingAddress) error
}

// RegionsResponse lists the options of the next cascade level
type RegionsResponse struct {
	Regions []domain.Region `json:"regions"`
	State   address.State   `json:"state"`
}

func customerResolver(c *gin.Context, sessions *service.Sessions) (*address.Resolver, bool) {
	customerID, ok := middleware.GetCustomerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return sessions.Get(customerID).Address, true
}

// HandleListProvinces handles GET /v1/address/provinces
func HandleListProvinces(sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolver, ok := customerResolver(c, sessions)
		if !ok {
			return
		}
		provinces, err := resolver.Provinces(c.Request.Context())
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, RegionsResponse{Regions: provinces, State: resolver.State()})
	}
}

// HandleSelectRegion handles POST /v1/address/{province,district,ward}
func HandleSelectRegion(level address.Level, sessions *service.Sessions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolver, ok := customerResolver(c, sessions)
		if !ok {
			return
		}
		var req service.SelectRegionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		var (
			next []domain.Region
			err  error
		)
		switch level {
		case address.LevelProvince:
			next, err = resolver.SelectProvince(c.Request.Context(), req.Code)
		case address.LevelDistrict:
			next, err = resolver.SelectDistrict(c.Request.Context(), req.Code)
		default:
			err = resolver.SelectWard(req.Code)
		}
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, RegionsResponse{Regions: next, State: resolver.State()})
	}
}

// HandleAddressState handles GET /v1/address/state
func HandleAddressState(sessions *service.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolver, ok := customerResolver(c, sessions)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, resolver.State())
	}
}

// HandleListSavedAddresses handles GET /v1/addresses
func HandleListSavedAddresses(book AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		addrs, err := book.SavedAddresses(c.Request.Context(), customerID)
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		if addrs == nil {
			addrs = []domain.ShippingAddress{}
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addrs})
	}
}

// HandleSaveAddress handles POST /v1/addresses
func HandleSaveAddress(book AddressBook, checker AddressChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req service.ShippingAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		addr := req.ToDomain()
		addr.UserID = customerID
		if err := checker.Validate(c.Request.Context(), addr); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		saved, err := book.SaveAddress(c.Request.Context(), addr)
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusCreated, saved)
	}
}

// ownedAddress checks that addressID is one of the customer's saved addresses
func ownedAddress(ctx context.Context, book AddressBook, customerID, addressID string) error {
	addrs, err := book.SavedAddresses(ctx, customerID)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if a.ID == addressID {
			return nil
		}
	}
	return &errors.ErrNotFound{Resource: "address", ID: addressID}
}

// HandleUpdateAddress handles PUT /v1/addresses/:id
func HandleUpdateAddress(book AddressBook, checker AddressChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req service.ShippingAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		addressID := c.Param("id")
		if err := ownedAddress(c.Request.Context(), book, customerID, addressID); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		addr := req.ToDomain()
		addr.ID = addressID
		addr.UserID = customerID
		if err := checker.Validate(c.Request.Context(), addr); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		updated, err := book.UpdateAddress(c.Request.Context(), addr)
		if err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// HandleDeleteAddress handles DELETE /v1/addresses/:id
func HandleDeleteAddress(book AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		addressID := c.Param("id")
		if err := ownedAddress(c.Request.Context(), book, customerID, addressID); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		if err := book.DeleteAddress(c.Request.Context(), addressID); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleSetDefaultAddress handles POST /v1/addresses/:id/default
func HandleSetDefaultAddress(book AddressBook, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		addressID := c.Param("id")
		if err := ownedAddress(c.Request.Context(), book, customerID, addressID); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		if err := book.SetDefaultAddress(c.Request.Context(), customerID, addressID); err != nil {
			respondError(c, logger, err, nil)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
