package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/simhastha_samwad/backend/internal/utils"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	maxCachedPlaces     = 512
)

// NominatimGeocoder resolves landmark pins against an OSM Nominatim
// instance. The public instance allows one request per second, so calls are
// paced by a shared limiter and answers are kept in memory.
type NominatimGeocoder struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	Client       *http.Client
	Limiter      *rate.Limiter

	once  sync.Once
	mu    sync.Mutex
	cache map[string]Place
}

type nominatimHit struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (g *NominatimGeocoder) init() {
	g.once.Do(func() {
		if g.Client == nil {
			g.Client = &http.Client{Timeout: 10 * time.Second}
		}
		if g.BaseURL == "" {
			g.BaseURL = defaultNominatimURL
		}
		g.BaseURL = strings.TrimRight(g.BaseURL, "/")
		if g.UserAgent == "" {
			g.UserAgent = "samwad-relay"
		}
		if g.Limiter == nil {
			g.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
		}
		g.cache = make(map[string]Place)
	})
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	g.init()
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Place{}, ErrNotFound
	}

	g.mu.Lock()
	cached, ok := g.cache[key]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	if err := g.Limiter.Wait(ctx); err != nil {
		return Place{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.CountryCodes != "" {
		params.Set("countrycodes", g.CountryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, fmt.Errorf("nominatim: %s", resp.Status)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Place{}, fmt.Errorf("nominatim: decode: %w", err)
	}
	place, err := firstPlace(hits)
	if err != nil {
		return Place{}, err
	}

	g.mu.Lock()
	if len(g.cache) >= maxCachedPlaces {
		g.cache = make(map[string]Place)
	}
	g.cache[key] = place
	g.mu.Unlock()
	return place, nil
}

func firstPlace(hits []nominatimHit) (Place, error) {
	if len(hits) == 0 {
		return Place{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim: lat %q: %w", hits[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim: lon %q: %w", hits[0].Lon, err)
	}
	p := Place{Point: utils.Point{Lat: lat, Lng: lng}, Name: hits[0].DisplayName, Relevance: hits[0].Importance}
	if !p.Valid() {
		return Place{}, ErrNotFound
	}
	return p, nil
}
