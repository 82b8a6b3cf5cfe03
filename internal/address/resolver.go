package address

import (
	"context"
	stderrors "errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// Directory is the read-only geography directory
type Directory interface {
	Provinces(ctx context.Context) ([]domain.Region, error)
	Districts(ctx context.Context, provinceCode string) ([]domain.Region, error)
	Wards(ctx context.Context, districtCode string) ([]domain.Region, error)
}

// ErrStaleResponse is returned when a lookup finished after its parent selection changed.
// The response has been discarded.
var ErrStaleResponse = stderrors.New("stale directory response discarded")

// Level is one step of the province, district, ward cascade
type Level string

const (
	LevelProvince Level = "province"
	LevelDistrict Level = "district"
	LevelWard     Level = "ward"
)

// Selection holds the currently selected regions
type Selection struct {
	Province *domain.Region `json:"province,omitempty"`
	District *domain.Region `json:"district,omitempty"`
	Ward     *domain.Region `json:"ward,omitempty"`
}

// State is a copy of the resolver's options and selection
type State struct {
	Selection   Selection        `json:"selection"`
	Provinces   []domain.Region  `json:"provinces"`
	Districts   []domain.Region  `json:"districts"`
	Wards       []domain.Region  `json:"wards"`
	Unavailable map[Level]string `json:"unavailable,omitempty"`
	CanSubmit   bool             `json:"canSubmit"`
}

// Resolver walks the province, district, ward cascade for one customer.
// Each parent level carries a generation counter: selecting a parent bumps
// it and clears every descendant, and a lookup that returns under an older
// generation is dropped.
type Resolver struct {
	dir    Directory
	logger *zap.Logger

	mu          sync.Mutex
	provinceGen uint64
	districtGen uint64
	provinces   []domain.Region
	districts   []domain.Region
	wards       []domain.Region
	selection   Selection
	unavailable map[Level]error
}

// NewResolver creates a resolver over a directory
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		dir:         dir,
		logger:      logger,
		unavailable: make(map[Level]error),
	}
}

// Provinces loads the province list
func (r *Resolver) Provinces(ctx context.Context) ([]domain.Region, error) {
	provinces, err := r.dir.Provinces(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.unavailable[LevelProvince] = err
		r.logger.Warn("Geography directory unavailable", zap.String("level", string(LevelProvince)), zap.Error(err))
		return nil, err
	}
	delete(r.unavailable, LevelProvince)
	r.provinces = provinces
	return provinces, nil
}

// SelectProvince selects a province, clears district and ward, and loads its districts
func (r *Resolver) SelectProvince(ctx context.Context, code string) ([]domain.Region, error) {
	r.mu.Lock()
	province, ok := find(r.provinces, code)
	if !ok {
		if len(r.provinces) > 0 {
			r.mu.Unlock()
			return nil, &errors.ErrValidation{Message: "unknown province", Fields: map[string]string{"provinceCode": code}}
		}
		province = domain.Region{Code: code}
	}
	r.provinceGen++
	r.districtGen++
	gen := r.provinceGen
	r.selection = Selection{Province: &province}
	r.districts = nil
	r.wards = nil
	delete(r.unavailable, LevelDistrict)
	delete(r.unavailable, LevelWard)
	r.mu.Unlock()

	districts, err := r.dir.Districts(ctx, code)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.provinceGen {
		r.logger.Debug("Discarding stale district list", zap.String("province_code", code))
		return nil, ErrStaleResponse
	}
	if err != nil {
		r.unavailable[LevelDistrict] = err
		r.logger.Warn("Geography directory unavailable", zap.String("level", string(LevelDistrict)), zap.Error(err))
		return nil, err
	}
	r.districts = districts
	return districts, nil
}

// SelectDistrict selects a district of the selected province, clears the ward, and loads its wards
func (r *Resolver) SelectDistrict(ctx context.Context, code string) ([]domain.Region, error) {
	r.mu.Lock()
	if r.selection.Province == nil {
		r.mu.Unlock()
		return nil, &errors.ErrValidation{Message: "select a province first"}
	}
	district, ok := find(r.districts, code)
	if !ok {
		r.mu.Unlock()
		return nil, &errors.ErrValidation{Message: "district does not belong to the selected province", Fields: map[string]string{"districtCode": code}}
	}
	r.districtGen++
	pGen, dGen := r.provinceGen, r.districtGen
	r.selection.District = &district
	r.selection.Ward = nil
	r.wards = nil
	delete(r.unavailable, LevelWard)
	r.mu.Unlock()

	wards, err := r.dir.Wards(ctx, code)

	r.mu.Lock()
	defer r.mu.Unlock()
	if pGen != r.provinceGen || dGen != r.districtGen {
		r.logger.Debug("Discarding stale ward list", zap.String("district_code", code))
		return nil, ErrStaleResponse
	}
	if err != nil {
		r.unavailable[LevelWard] = err
		r.logger.Warn("Geography directory unavailable", zap.String("level", string(LevelWard)), zap.Error(err))
		return nil, err
	}
	r.wards = wards
	return wards, nil
}

// SelectWard selects a ward of the selected district
func (r *Resolver) SelectWard(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selection.District == nil {
		return &errors.ErrValidation{Message: "select a district first"}
	}
	ward, ok := find(r.wards, code)
	if !ok {
		return &errors.ErrValidation{Message: "ward does not belong to the selected district", Fields: map[string]string{"wardCode": code}}
	}
	r.selection.Ward = &ward
	return nil
}

// State returns a copy of the current options and selection
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := State{
		Selection: r.selection,
		Provinces: append([]domain.Region(nil), r.provinces...),
		Districts: append([]domain.Region(nil), r.districts...),
		Wards:     append([]domain.Region(nil), r.wards...),
		CanSubmit: r.canSubmitLocked(),
	}
	if len(r.unavailable) > 0 {
		s.Unavailable = make(map[Level]string, len(r.unavailable))
		for level, err := range r.unavailable {
			s.Unavailable[level] = err.Error()
		}
	}
	return s
}

// CanSubmit reports whether all three levels are selected and the directory is reachable
func (r *Resolver) CanSubmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canSubmitLocked()
}

func (r *Resolver) canSubmitLocked() bool {
	return len(r.unavailable) == 0 &&
		r.selection.Province != nil &&
		r.selection.District != nil &&
		r.selection.Ward != nil
}

// Apply copies the selected regions into an address
func (s Selection) Apply(addr domain.ShippingAddress) domain.ShippingAddress {
	if s.Province != nil {
		addr.ProvinceCode, addr.ProvinceName = s.Province.Code, s.Province.Name
	}
	if s.District != nil {
		addr.DistrictCode, addr.DistrictName = s.District.Code, s.District.Name
	}
	if s.Ward != nil {
		addr.WardCode, addr.WardName = s.Ward.Code, s.Ward.Name
	}
	return addr
}

func find(regions []domain.Region, code string) (domain.Region, bool) {
	for _, r := range regions {
		if r.Code == code {
			return r, true
		}
	}
	return domain.Region{}, false
}
