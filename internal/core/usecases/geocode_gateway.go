package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// sharedLookupTimeout bounds a provider call that no single caller owns.
const sharedLookupTimeout = 15 * time.Second

// GeocodeGateway turns a confirmed coordinate into address components.
type GeocodeGateway struct {
	geocoder ports.ReverseGeocoder
	cache    ports.CacheService
	ttl      int
	group    singleflight.Group
}

// NewGeocodeGateway creates a gateway. cache may be nil; ttlSeconds <= 0
// disables caching.
func NewGeocodeGateway(geocoder ports.ReverseGeocoder, cache ports.CacheService, ttlSeconds int) *GeocodeGateway {
	return &GeocodeGateway{geocoder: geocoder, cache: cache, ttl: ttlSeconds}
}

// Resolve reverse-geocodes c. It returns ErrGeocodeMiss when the provider
// has no result and ErrGeocodeFailed on any other failure; no partial
// address is returned with an error.
func (g *GeocodeGateway) Resolve(ctx context.Context, c domain.Coordinate) (domain.AddressComponents, error) {
	ctx, span := otel.Tracer("pinpoint/usecases").Start(ctx, "GeocodeGateway.Resolve")
	defer span.End()
	span.SetAttributes(attribute.Float64("lat", c.Lat), attribute.Float64("lng", c.Lng))

	key := fmt.Sprintf("geocode:%.6f:%.6f", c.Lat, c.Lng)

	if g.cache != nil && g.ttl > 0 {
		if data, err := g.cache.Get(ctx, key); err == nil && data != nil {
			var addr domain.AddressComponents
			if json.Unmarshal(data, &addr) == nil {
				metrics.CacheHits.WithLabelValues("geocode").Inc()
				return addr, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geocode").Inc()
	}

	// Shared by every caller asking for the same point; each caller stops
	// waiting on its own ctx without cancelling the others.
	ch := g.group.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		addr, err := g.lookup(sctx, c)
		if err == nil && g.cache != nil && g.ttl > 0 {
			if data, merr := json.Marshal(addr); merr == nil {
				_ = g.cache.Set(sctx, key, data, g.ttl)
			}
		}
		return addr, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return domain.AddressComponents{}, ctx.Err()
	}
	if res.Err != nil {
		metrics.GeocodeRequests.WithLabelValues(geocodeOutcome(res.Err)).Inc()
		span.RecordError(res.Err)
		return domain.AddressComponents{}, res.Err
	}
	metrics.GeocodeRequests.WithLabelValues("ok").Inc()
	return res.Val.(domain.AddressComponents), nil
}

func (g *GeocodeGateway) lookup(ctx context.Context, c domain.Coordinate) (domain.AddressComponents, error) {
	resp, err := g.geocoder.ReverseGeocode(ctx, c)
	if err != nil {
		return domain.AddressComponents{}, fmt.Errorf("%w: %v", domain.ErrGeocodeFailed, err)
	}
	switch resp.Status {
	case domain.GeocodeStatusOK:
		if len(resp.Results) == 0 {
			return domain.AddressComponents{}, domain.ErrGeocodeMiss
		}
		return ExtractAddress(resp.Results[0]), nil
	case domain.GeocodeStatusZeroResults:
		return domain.AddressComponents{}, domain.ErrGeocodeMiss
	default:
		if resp.ErrorMessage != "" {
			return domain.AddressComponents{}, fmt.Errorf("%w: %s: %s", domain.ErrGeocodeFailed, resp.Status, resp.ErrorMessage)
		}
		return domain.AddressComponents{}, fmt.Errorf("%w: status %s", domain.ErrGeocodeFailed, resp.Status)
	}
}

// ExtractAddress maps a geocoder result onto AddressComponents by component
// type. The first component of each category wins; missing categories stay
// empty.
func ExtractAddress(r domain.GeocodeResult) domain.AddressComponents {
	var a domain.AddressComponents
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			switch {
			case t == "street_number":
				setOnce(&a.HouseNumber, comp.LongName)
			case t == "route":
				setOnce(&a.StreetName, comp.LongName)
			case strings.HasPrefix(t, "sublocality"), t == "neighborhood", t == "locality":
				setOnce(&a.AreaName, comp.LongName)
			case t == "administrative_area_level_2":
				setOnce(&a.LGA, comp.LongName)
			case t == "administrative_area_level_1":
				setOnce(&a.State, comp.LongName)
			}
		}
	}
	return a
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func geocodeOutcome(err error) string {
	if errors.Is(err, domain.ErrGeocodeMiss) {
		return "miss"
	}
	return "error"
}
