package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFirstPlace(t *testing.T) {
	p, err := firstPlace([]nominatimHit{{Lat: "23.1828", Lon: "75.7681", DisplayName: "Ram Ghat, Ujjain", Importance: 0.61}})
	require.NoError(t, err)
	assert.Equal(t, 23.1828, p.Lat)
	assert.Equal(t, 75.7681, p.Lng)
	assert.Equal(t, "Ram Ghat, Ujjain", p.Name)

	_, err = firstPlace(nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = firstPlace([]nominatimHit{{Lat: "0", Lon: "0"}})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = firstPlace([]nominatimHit{{Lat: "north", Lon: "1"}})
	assert.Error(t, err)
}

func TestNominatimGeocoderCachesQueries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Ghat Road, Ujjain", r.URL.Query().Get("q"))
		assert.Equal(t, "in", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "samwad-relay", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"23.18","lon":"75.76","display_name":"Ghat Road","importance":0.4}]`))
	}))
	defer srv.Close()

	g := &NominatimGeocoder{BaseURL: srv.URL + "/", CountryCodes: "in", Limiter: rate.NewLimiter(rate.Inf, 1)}
	for _, q := range []string{"Ghat Road, Ujjain", "  ghat road, ujjain "} {
		p, err := g.Geocode(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "Ghat Road", p.Name)
		assert.Equal(t, 75.76, p.Lng)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestNominatimGeocoderHonoursContextWhileThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := &NominatimGeocoder{BaseURL: srv.URL, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	_, err := g.Geocode(context.Background(), "first")
	assert.ErrorIs(t, err, ErrNotFound)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Geocode(ctx, "second")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
