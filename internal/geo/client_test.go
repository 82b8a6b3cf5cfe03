package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

func newDirectoryServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/provinces":
			_, _ = w.Write([]byte(`[{"code":"01","name":"Ha Noi"},{"code":"79","name":"Ho Chi Minh"}]`))
		case "/provinces/01/districts":
			_, _ = w.Write([]byte(`[{"code":"001","name":"Ba Dinh","parentCode":"01"}]`))
		case "/districts/001/wards":
			_, _ = w.Write([]byte(`[{"code":"00001","name":"Phuc Xa","parentCode":"001"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_CascadeLookups(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	ctx := context.Background()

	provinces, err := c.Provinces(ctx)
	require.NoError(t, err)
	assert.Len(t, provinces, 2)

	districts, err := c.Districts(ctx, "01")
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "01", districts[0].ParentCode)

	wards, err := c.Wards(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "Phuc Xa", wards[0].Name)
}

func TestClient_CachesUntilExpiry(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := c.Provinces(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	now = now.Add(2 * time.Minute)
	_, err := c.Provinces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	c.Invalidate()
	_, err = c.Provinces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_UnknownCode(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	_, err := c.Districts(context.Background(), "99")

	var remote *errors.ErrRemote
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.Status)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(addr, time.Second, time.Minute, nil)
	_, err := c.Provinces(context.Background())

	var transportErr *errors.ErrTransport
	assert.ErrorAs(t, err, &transportErr)
}

func TestClient_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	var hits int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		entered <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`[{"code":"79","name":"Ho Chi Minh"}]`))
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 5*time.Second, time.Minute, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Provinces(firstCtx)
		firstErr <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		provinces, err := c.Provinces(context.Background())
		if err == nil && len(provinces) != 1 {
			err = assert.AnError
		}
		second <- err
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	release <- struct{}{}
	require.NoError(t, <-second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_UnknownCodesDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := newDirectoryServer(t, &hits)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	for i := 0; i < 5; i++ {
		_, err := c.Districts(context.Background(), "99")
		var remote *errors.ErrRemote
		require.ErrorAs(t, err, &remote)
	}

	provinces, err := c.Provinces(context.Background())
	require.NoError(t, err)
	assert.Len(t, provinces, 2)
}
