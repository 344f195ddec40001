// Package googlemaps talks to the Google Places, Geocoding and Street View
// metadata web services.
package googlemaps

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
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com"
	provider       = "google"

	panoBaseURL = "https://www.google.com/maps/@"
	// streetViewRadius is how far from the point a panorama may be, in meters.
	streetViewRadius = 50
)

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	// Country restricts autocomplete (ISO 3166-1 alpha-2, lower case).
	Country string
	// Bounds biases and filters text search results.
	Bounds  domain.Bounds
	Timeout time.Duration
}

// Client implements ports.PlaceService, ports.ReverseGeocoder and
// ports.StreetViewService.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type placeResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         *struct {
		Location *latLng `json:"location"`
	} `json:"geometry"`
}

func (r placeResult) toDomain(fallbackID string) *domain.Place {
	p := &domain.Place{ID: r.PlaceID, Name: r.Name, Address: r.FormattedAddress}
	if p.ID == "" {
		p.ID = fallbackID
	}
	if r.Geometry != nil && r.Geometry.Location != nil {
		p.Geometry = &domain.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
	}
	return p
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string `json:"place_id"`
		Description          string `json:"description"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

type detailsResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Result       placeResult `json:"result"`
}

type findPlaceResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Candidates   []placeResult `json:"candidates"`
}

// Suggest returns country-restricted predictions for input.
func (c *Client) Suggest(ctx context.Context, input, sessionToken string) ([]domain.Suggestion, error) {
	params := url.Values{}
	params.Set("input", input)
	if c.cfg.Country != "" {
		params.Set("components", "country:"+c.cfg.Country)
	}
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var resp autocompleteResponse
	if err := c.get(ctx, "autocomplete", "/maps/api/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}
	if err := placesStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, domain.Suggestion{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

// Resolve fetches the details of a prediction. The place's Geometry is nil
// when Google has no location for it.
func (c *Client) Resolve(ctx context.Context, placeID, sessionToken string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,geometry,name,formatted_address")
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var resp detailsResponse
	if err := c.get(ctx, "details", "/maps/api/place/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "NOT_FOUND" || resp.Status == domain.GeocodeStatusZeroResults {
		return &domain.Place{ID: placeID}, nil
	}
	if err := placesStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return resp.Result.toDomain(placeID), nil
}

// FindPlace runs a text query biased to the configured bounds and returns
// the first candidate inside them, or nil.
func (c *Client) FindPlace(ctx context.Context, text string) (*domain.Place, error) {
	params := url.Values{}
	params.Set("input", text)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,geometry,name,formatted_address")
	if b := c.cfg.Bounds; b != (domain.Bounds{}) {
		params.Set("locationbias", fmt.Sprintf("rectangle:%g,%g|%g,%g", b.MinLat, b.MinLng, b.MaxLat, b.MaxLng))
	}

	var resp findPlaceResponse
	if err := c.get(ctx, "findplace", "/maps/api/place/findplacefromtext/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == domain.GeocodeStatusZeroResults {
		return nil, nil
	}
	if err := placesStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		p := cand.toDomain("")
		if p.Geometry == nil {
			continue
		}
		if c.cfg.Bounds != (domain.Bounds{}) && !c.cfg.Bounds.Contains(*p.Geometry) {
			continue
		}
		return p, nil
	}
	return nil, nil
}

// ReverseGeocode returns the raw geocoding response for c. Non-OK statuses
// are returned as data, not errors.
func (c *Client) ReverseGeocode(ctx context.Context, pt domain.Coordinate) (*domain.GeocodeResponse, error) {
	params := url.Values{}
	params.Set("latlng", pt.String())

	var resp domain.GeocodeResponse
	if err := c.get(ctx, "reverse_geocode", "/maps/api/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type streetViewMetadata struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	PanoID       string  `json:"pano_id"`
	Location     *latLng `json:"location"`
	Date         string  `json:"date"`
	Copyright    string  `json:"copyright"`
}

// StreetView looks up the outdoor panorama nearest to pt. ZERO_RESULTS and
// NOT_FOUND are reported as unavailable; other non-OK statuses are errors.
func (c *Client) StreetView(ctx context.Context, pt domain.Coordinate) (*domain.StreetView, error) {
	params := url.Values{}
	params.Set("location", pt.String())
	params.Set("radius", strconv.Itoa(streetViewRadius))
	params.Set("source", "outdoor")

	var resp streetViewMetadata
	if err := c.get(ctx, "streetview_metadata", "/maps/api/streetview/metadata", params, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStreetViewFailed, err)
	}

	sv := &domain.StreetView{
		Status:    resp.Status,
		Requested: pt,
		Heading:   domain.StreetViewHeading,
		Pitch:     domain.StreetViewPitch,
	}
	switch resp.Status {
	case domain.GeocodeStatusOK:
		sv.Available = true
		sv.PanoID = resp.PanoID
		sv.Date = resp.Date
		sv.Copyright = resp.Copyright
		if resp.Location != nil {
			sv.Location = &domain.Coordinate{Lat: resp.Location.Lat, Lng: resp.Location.Lng}
		}
		sv.PanoURL = panoURL(resp.PanoID)
		return sv, nil
	case domain.GeocodeStatusZeroResults, "NOT_FOUND":
		sv.Message = domain.StreetViewUnavailable
		return sv, nil
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: status %s: %s", domain.ErrStreetViewFailed, resp.Status, resp.ErrorMessage)
	}
	return nil, fmt.Errorf("%w: status %s", domain.ErrStreetViewFailed, resp.Status)
}

func panoURL(panoID string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("map_action", "pano")
	q.Set("pano", panoID)
	q.Set("heading", strconv.Itoa(domain.StreetViewHeading))
	q.Set("pitch", strconv.Itoa(domain.StreetViewPitch))
	return panoBaseURL + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) (err error) {
	ctx, span := otel.Tracer("pinpoint/googlemaps").Start(ctx, "googlemaps."+op)
	defer span.End()
	span.SetAttributes(attribute.String("vendor.operation", op))

	start := time.Now()
	defer func() {
		metrics.ObserveVendor(provider, op, start, err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	params.Set("key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		params.Set("language", c.cfg.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google %s request failed: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google %s returned status %d", op, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding google %s response: %w", op, err)
	}
	return nil
}

func placesStatus(status, msg string) error {
	switch status {
	case domain.GeocodeStatusOK, domain.GeocodeStatusZeroResults:
		return nil
	}
	if msg != "" {
		return fmt.Errorf("google places status %s: %s", status, msg)
	}
	return fmt.Errorf("google places status %s", status)
}
