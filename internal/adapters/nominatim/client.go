// Package nominatim is an OpenStreetMap Nominatim places provider and
// reverse geocoder.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	provider       = "nominatim"
	suggestLimit   = 5
)

type Config struct {
	BaseURL   string
	UserAgent string
	Country   string
	Bounds    domain.Bounds
	// RateLimit is in requests per second; the public instance allows 1.
	RateLimit float64
	Timeout   time.Duration
}

// Client implements ports.PlaceService and ports.ReverseGeocoder.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

type nominatimPlace struct {
	OSMType     string           `json:"osm_type"`
	OSMID       int64            `json:"osm_id"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

type nominatimAddress struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Quarter       string `json:"quarter"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	County        string `json:"county"`
	State         string `json:"state"`
}

// placeID encodes the OSM element the way the lookup endpoint expects it,
// e.g. "N240109189".
func (p nominatimPlace) placeID() string {
	if p.OSMType == "" {
		return ""
	}
	return strings.ToUpper(p.OSMType[:1]) + strconv.FormatInt(p.OSMID, 10)
}

func (p nominatimPlace) toDomain() *domain.Place {
	out := &domain.Place{ID: p.placeID(), Name: p.Name, Address: p.DisplayName}
	if out.Name == "" {
		out.Name = p.DisplayName
	}
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lng, errLng := strconv.ParseFloat(p.Lon, 64)
	if errLat == nil && errLng == nil {
		out.Geometry = &domain.Coordinate{Lat: lat, Lng: lng}
	}
	return out
}

// Suggest lists up to five matches for input. Nominatim has no session
// billing, so sessionToken is ignored.
func (c *Client) Suggest(ctx context.Context, input, _ string) ([]domain.Suggestion, error) {
	places, err := c.search(ctx, "suggest", input, suggestLimit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(places))
	for _, p := range places {
		id := p.placeID()
		if id == "" {
			continue
		}
		main, secondary, _ := strings.Cut(p.DisplayName, ", ")
		if p.Name != "" {
			main = p.Name
		}
		out = append(out, domain.Suggestion{
			PlaceID:       id,
			Description:   p.DisplayName,
			MainText:      main,
			SecondaryText: secondary,
		})
	}
	return out, nil
}

// Resolve looks up an element by its "N123"-style ID.
func (c *Client) Resolve(ctx context.Context, placeID, _ string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("osm_ids", placeID)
	params.Set("format", "jsonv2")

	var places []nominatimPlace
	if err := c.get(ctx, "lookup", "/lookup", params, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return &domain.Place{ID: placeID}, nil
	}
	return places[0].toDomain(), nil
}

func (c *Client) FindPlace(ctx context.Context, text string) (*domain.Place, error) {
	places, err := c.search(ctx, "findplace", text, 1)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}
	p := places[0].toDomain()
	if p.Geometry == nil {
		return nil, nil
	}
	return p, nil
}

// ReverseGeocode maps Nominatim's address breakdown onto the shared
// geocoding response shape, using the component types the address
// extraction understands.
func (c *Client) ReverseGeocode(ctx context.Context, pt domain.Coordinate) (*domain.GeocodeResponse, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(pt.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(pt.Lng, 'f', -1, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	var p nominatimPlace
	if err := c.get(ctx, "reverse_geocode", "/reverse", params, &p); err != nil {
		return nil, err
	}
	if p.Error != "" {
		return &domain.GeocodeResponse{Status: domain.GeocodeStatusZeroResults}, nil
	}

	return &domain.GeocodeResponse{
		Status: domain.GeocodeStatusOK,
		Results: []domain.GeocodeResult{{
			FormattedAddress:  p.DisplayName,
			AddressComponents: addressComponents(p.Address),
		}},
	}, nil
}

func addressComponents(a nominatimAddress) []domain.AddressComponent {
	var out []domain.AddressComponent
	add := func(v string, types ...string) {
		if v != "" {
			out = append(out, domain.AddressComponent{LongName: v, ShortName: v, Types: types})
		}
	}
	add(a.HouseNumber, "street_number")
	add(a.Road, "route")
	add(a.Neighbourhood, "neighborhood", "political")
	add(a.Suburb, "sublocality", "political")
	add(a.Quarter, "sublocality_level_1", "political")
	add(pickCity(a), "locality", "political")
	add(a.County, "administrative_area_level_2", "political")
	add(a.State, "administrative_area_level_1", "political")
	return out
}

func pickCity(a nominatimAddress) string {
	if a.City != "" {
		return a.City
	}
	if a.Town != "" {
		return a.Town
	}
	return a.Village
}

func (c *Client) search(ctx context.Context, op, q string, limit int) ([]nominatimPlace, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	if c.cfg.Country != "" {
		params.Set("countrycodes", c.cfg.Country)
	}
	if b := c.cfg.Bounds; b != (domain.Bounds{}) {
		params.Set("viewbox", fmt.Sprintf("%g,%g,%g,%g", b.MinLng, b.MaxLat, b.MaxLng, b.MinLat))
		params.Set("bounded", "1")
	}

	var places []nominatimPlace
	if err := c.get(ctx, op, "/search", params, &places); err != nil {
		return nil, err
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) (err error) {
	ctx, span := otel.Tracer("pinpoint/nominatim").Start(ctx, "nominatim."+op)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("nominatim rate limit: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.ObserveVendor(provider, op, start, err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim upstream error: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding nominatim %s response: %w", op, err)
	}
	return nil
}
