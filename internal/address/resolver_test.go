package address

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

type fakeDirectory struct {
	mu        sync.Mutex
	provinces []domain.Region
	districts map[string][]domain.Region
	wards     map[string][]domain.Region
	err       error
	// gates holds a district lookup until the channel is closed
	gates   map[string]chan struct{}
	entered chan string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		provinces: []domain.Region{{Code: "01", Name: "Ha Noi"}, {Code: "79", Name: "Ho Chi Minh"}},
		districts: map[string][]domain.Region{
			"01": {{Code: "001", Name: "Ba Dinh", ParentCode: "01"}},
			"79": {{Code: "760", Name: "Quan 1", ParentCode: "79"}},
		},
		wards: map[string][]domain.Region{
			"001": {{Code: "00001", Name: "Phuc Xa", ParentCode: "001"}},
			"760": {{Code: "26734", Name: "Tan Dinh", ParentCode: "760"}},
		},
		gates: map[string]chan struct{}{},
	}
}

func (d *fakeDirectory) Provinces(ctx context.Context) ([]domain.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.provinces, nil
}

func (d *fakeDirectory) Districts(ctx context.Context, provinceCode string) ([]domain.Region, error) {
	d.mu.Lock()
	gate := d.gates[provinceCode]
	entered := d.entered
	d.mu.Unlock()
	if entered != nil {
		entered <- provinceCode
	}
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.districts[provinceCode], nil
}

func (d *fakeDirectory) Wards(ctx context.Context, districtCode string) ([]domain.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.wards[districtCode], nil
}

func selectAll(t *testing.T, r *Resolver, province, district, ward string) {
	t.Helper()
	ctx := context.Background()
	_, err := r.Provinces(ctx)
	require.NoError(t, err)
	_, err = r.SelectProvince(ctx, province)
	require.NoError(t, err)
	_, err = r.SelectDistrict(ctx, district)
	require.NoError(t, err)
	require.NoError(t, r.SelectWard(ward))
}

func TestResolver_FullCascade(t *testing.T) {
	r := NewResolver(newFakeDirectory(), nil)
	selectAll(t, r, "01", "001", "00001")

	state := r.State()
	assert.True(t, state.CanSubmit)
	assert.Equal(t, "Ba Dinh", state.Selection.District.Name)

	addr := state.Selection.Apply(domain.ShippingAddress{Name: "An"})
	assert.Equal(t, "01", addr.ProvinceCode)
	assert.Equal(t, "Phuc Xa", addr.WardName)
}

func TestResolver_ChangingProvinceClearsDistrictAndWard(t *testing.T) {
	r := NewResolver(newFakeDirectory(), nil)
	selectAll(t, r, "01", "001", "00001")

	districts, err := r.SelectProvince(context.Background(), "79")
	require.NoError(t, err)
	require.Len(t, districts, 1)

	state := r.State()
	assert.Equal(t, "79", state.Selection.Province.Code)
	assert.Nil(t, state.Selection.District)
	assert.Nil(t, state.Selection.Ward)
	assert.Empty(t, state.Wards)
	assert.False(t, state.CanSubmit)
}

func TestResolver_ChangingDistrictClearsWard(t *testing.T) {
	dir := newFakeDirectory()
	dir.districts["01"] = append(dir.districts["01"], domain.Region{Code: "002", Name: "Hoan Kiem", ParentCode: "01"})
	r := NewResolver(dir, nil)
	selectAll(t, r, "01", "001", "00001")

	_, err := r.SelectDistrict(context.Background(), "002")
	require.NoError(t, err)

	state := r.State()
	assert.Equal(t, "002", state.Selection.District.Code)
	assert.Nil(t, state.Selection.Ward)
}

func TestResolver_StaleDistrictResponseDiscarded(t *testing.T) {
	dir := newFakeDirectory()
	gate := make(chan struct{})
	dir.gates["01"] = gate
	dir.entered = make(chan string, 2)
	r := NewResolver(dir, nil)
	_, err := r.Provinces(context.Background())
	require.NoError(t, err)

	staleErr := make(chan error, 1)
	go func() {
		_, err := r.SelectProvince(context.Background(), "01")
		staleErr <- err
	}()
	require.Equal(t, "01", <-dir.entered)

	// the customer switches province while the first lookup is in flight
	districts, err := r.SelectProvince(context.Background(), "79")
	require.NoError(t, err)
	require.Equal(t, "760", districts[0].Code)

	close(gate)
	assert.ErrorIs(t, <-staleErr, ErrStaleResponse)

	state := r.State()
	assert.Equal(t, "79", state.Selection.Province.Code)
	require.Len(t, state.Districts, 1)
	assert.Equal(t, "760", state.Districts[0].Code)
}

func TestResolver_DistrictMustBelongToProvince(t *testing.T) {
	r := NewResolver(newFakeDirectory(), nil)
	_, err := r.Provinces(context.Background())
	require.NoError(t, err)
	_, err = r.SelectProvince(context.Background(), "01")
	require.NoError(t, err)

	_, err = r.SelectDistrict(context.Background(), "760")
	var validationErr *errors.ErrValidation
	assert.ErrorAs(t, err, &validationErr)
}

func TestResolver_DirectoryUnavailableBlocksSubmission(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, nil)
	selectAll(t, r, "01", "001", "00001")

	dir.mu.Lock()
	dir.err = stderrors.New("connection refused")
	dir.mu.Unlock()

	_, err := r.SelectProvince(context.Background(), "79")
	require.Error(t, err)

	state := r.State()
	assert.False(t, state.CanSubmit)
	assert.Contains(t, state.Unavailable, LevelDistrict)
}
