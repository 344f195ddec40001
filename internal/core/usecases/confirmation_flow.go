package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// ConfirmRequest is what a session hands to the flow.
type ConfirmRequest struct {
	SessionID   string
	FormKey     string
	Marker      *domain.Coordinate
	Source      domain.UpdateSource
	PassThrough url.Values
}

// ConfirmResult is a completed handoff.
type ConfirmResult struct {
	Handoff      domain.Handoff      `json:"handoff"`
	NavigateURL  string              `json:"navigate_url"`
	Confirmation domain.Confirmation `json:"confirmation"`
}

// ConfirmationFlow resolves the marker's address and hands it to the
// enrollment form.
type ConfirmationFlow struct {
	gateway  *GeocodeGateway
	forms    ports.FormStore
	archiver ports.ConfirmationArchiver
	formPath string
	logger   *slog.Logger
	now      func() time.Time
}

// NewConfirmationFlow builds the flow. forms and archiver may be nil.
func NewConfirmationFlow(gateway *GeocodeGateway, forms ports.FormStore, archiver ports.ConfirmationArchiver, formPath string) *ConfirmationFlow {
	if formPath == "" {
		formPath = "/form"
	}
	return &ConfirmationFlow{
		gateway:  gateway,
		forms:    forms,
		archiver: archiver,
		formPath: formPath,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// Confirm geocodes the marker, persists the merged handoff and returns the
// navigation target. On any failure nothing is persisted.
func (f *ConfirmationFlow) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.Marker == nil {
		return nil, domain.ErrNoMarker
	}
	ctx, span := otel.Tracer("pinpoint/usecases").Start(ctx, "ConfirmationFlow.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", req.SessionID))

	addr, err := f.gateway.Resolve(ctx, *req.Marker)
	if err != nil {
		metrics.Confirmations.WithLabelValues("geocode_failed").Inc()
		return nil, err
	}

	step := 1
	if s, err := strconv.Atoi(req.PassThrough.Get(queryStep)); err == nil && s > 0 {
		step = s
	}
	h := domain.Handoff{
		AddressComponents: addr,
		Latitude:          req.Marker.Lat,
		Longitude:         req.Marker.Lng,
		Step:              step,
	}

	if f.forms != nil {
		if err := f.forms.Merge(ctx, req.FormKey, h.Fields()); err != nil {
			metrics.Confirmations.WithLabelValues("persist_failed").Inc()
			span.RecordError(err)
			return nil, fmt.Errorf("persist form %s: %w", req.FormKey, err)
		}
	}

	q := url.Values{}
	for k, v := range req.PassThrough {
		q[k] = append([]string(nil), v...)
	}
	h.Apply(q)

	metrics.Confirmations.WithLabelValues("ok").Inc()
	return &ConfirmResult{
		Handoff:     h,
		NavigateURL: f.formPath + "?" + q.Encode(),
		Confirmation: domain.Confirmation{
			ID:          uuid.NewString(),
			SessionID:   req.SessionID,
			FormKey:     req.FormKey,
			Handoff:     h,
			Source:      string(req.Source),
			ConfirmedAt: f.now().UTC(),
		},
	}, nil
}

// Archive records c in the background. Failures are logged only; the
// handoff has already happened.
func (f *ConfirmationFlow) Archive(c domain.Confirmation) {
	if f.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := f.archiver.Archive(ctx, c); err != nil {
			f.logger.Warn("archive confirmation failed", "confirmation_id", c.ID, "session_id", c.SessionID, "error", err)
		}
	}()
}
