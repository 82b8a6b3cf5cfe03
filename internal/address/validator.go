package address

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// DefaultPhonePattern matches domestic mobile numbers: 0 or +84, a mobile
// network prefix digit, then eight digits.
const DefaultPhonePattern = `^(0|\+84)(3|5|7|8|9)[0-9]{8}$`

// Validator checks shipping addresses
type Validator struct {
	dir   Directory
	phone *regexp.Regexp
}

// NewValidator compiles the phone pattern. dir may be nil, in which case
// the region hierarchy is not checked.
func NewValidator(dir Directory, phonePattern string) (*Validator, error) {
	if phonePattern == "" {
		phonePattern = DefaultPhonePattern
	}
	re, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}
	return &Validator{dir: dir, phone: re}, nil
}

// ValidPhone reports whether phone matches the mobile-prefix pattern
func (v *Validator) ValidPhone(phone string) bool {
	return v.phone.MatchString(strings.TrimSpace(phone))
}

// CheckFields validates completeness and the phone number. It never touches the network.
func (v *Validator) CheckFields(addr domain.ShippingAddress) error {
	fields := make(map[string]string)
	required := map[string]string{
		"name":         addr.Name,
		"phone":        addr.Phone,
		"addressLine":  addr.AddressLine,
		"provinceCode": addr.ProvinceCode,
		"districtCode": addr.DistrictCode,
		"wardCode":     addr.WardCode,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			fields[field] = "required"
		}
	}
	if _, missing := fields["phone"]; !missing && !v.ValidPhone(addr.Phone) {
		fields["phone"] = "must be a valid mobile number"
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "invalid shipping address", Fields: fields}
	}
	return nil
}

// Validate runs CheckFields, then confirms the district belongs to the
// province and the ward to the district.
func (v *Validator) Validate(ctx context.Context, addr domain.ShippingAddress) error {
	if err := v.CheckFields(addr); err != nil {
		return err
	}
	if v.dir == nil {
		return nil
	}

	districts, err := v.dir.Districts(ctx, addr.ProvinceCode)
	if err != nil {
		return err
	}
	if _, ok := find(districts, addr.DistrictCode); !ok {
		return &errors.ErrValidation{
			Message: "invalid shipping address",
			Fields:  map[string]string{"districtCode": "does not belong to the selected province"},
		}
	}

	wards, err := v.dir.Wards(ctx, addr.DistrictCode)
	if err != nil {
		return err
	}
	if _, ok := find(wards, addr.WardCode); !ok {
		return &errors.ErrValidation{
			Message: "invalid shipping address",
			Fields:  map[string]string{"wardCode": "does not belong to the selected district"},
		}
	}
	return nil
}
