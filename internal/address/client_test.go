package address

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPSGCServer(t *testing.T) (*Client, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/provinces.json":
			w.Write([]byte(`[{"code":"012800000","name":"Ilocos Norte"},{"code":"072200000","name":"Cebu"}]`))
		case "/provinces/072200000/cities-municipalities.json":
			w.Write([]byte(`[{"code":"072217000","name":"Cebu City"}]`))
		case "/cities-municipalities/072217000/barangays.json":
			w.Write([]byte(`[{"code":"072217031","name":"Lahug"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, nil, zerolog.Nop()), &paths
}

func TestLookupProvinces(t *testing.T) {
	c, _ := newPSGCServer(t)
	opts, err := c.Lookup(context.Background(), LevelProvince, "")
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, Option{Code: "012800000", Name: "Ilocos Norte"}, opts[0])
}

func TestLookupCitiesNeedsProvinceCode(t *testing.T) {
	c, paths := newPSGCServer(t)

	_, err := c.Lookup(context.Background(), LevelCity, "")
	require.Error(t, err)
	assert.Empty(t, *paths, "invalid lookups never hit the upstream")

	opts, err := c.Lookup(context.Background(), LevelCity, "072200000")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Cebu City", opts[0].Name)
}

func TestLookupBarangays(t *testing.T) {
	c, _ := newPSGCServer(t)
	opts, err := c.Lookup(context.Background(), LevelBarangay, "072217000")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Lahug", opts[0].Name)
}

func TestLookupUnknownLevel(t *testing.T) {
	c, _ := newPSGCServer(t)
	_, err := c.Lookup(context.Background(), "region", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown address level")
}

func TestLookupUpstreamError(t *testing.T) {
	c, _ := newPSGCServer(t)
	_, err := c.Lookup(context.Background(), LevelCity, "no-such-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
