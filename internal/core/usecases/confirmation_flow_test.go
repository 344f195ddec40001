package usecases_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

func newFlow(geo *mockGeocoder, forms *mockForms, archiver *mockArchiver) *usecases.ConfirmationFlow {
	gw := usecases.NewGeocodeGateway(geo, nil, 0)
	var fs ports.FormStore
	if forms != nil {
		fs = forms
	}
	var ar ports.ConfirmationArchiver
	if archiver != nil {
		ar = archiver
	}
	return usecases.NewConfirmationFlow(gw, fs, ar, "/enroll")
}

func TestConfirmationFlow_NoMarker(t *testing.T) {
	geo := &mockGeocoder{}
	f := newFlow(geo, newMockForms(), nil)

	_, err := f.Confirm(context.Background(), usecases.ConfirmRequest{SessionID: "s"})
	if !errors.Is(err, domain.ErrNoMarker) {
		t.Fatalf("expected ErrNoMarker, got %v", err)
	}
	if geo.Calls() != 0 {
		t.Error("geocoder must not be called without a marker")
	}
}

func TestConfirmationFlow_Success(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
		return lagosResponse(), nil
	}}
	forms := newMockForms()
	f := newFlow(geo, forms, nil)

	marker := domain.Coordinate{Lat: 6.4474, Lng: 3.4278}
	res, err := f.Confirm(context.Background(), usecases.ConfirmRequest{
		SessionID:   "s-1",
		FormKey:     "enroll-42",
		Marker:      &marker,
		Source:      domain.SourceDrag,
		PassThrough: url.Values{"step": {"3"}, "lang": {"en"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := res.Handoff
	if h.Latitude != marker.Lat || h.Longitude != marker.Lng || h.Step != 3 || h.LGA != "Eti-Osa" {
		t.Errorf("unexpected handoff %+v", h)
	}

	stored := forms.Stored("enroll-42")
	if stored["streetName"] != "Awolowo Road" || stored["latitude"] != "6.4474" {
		t.Errorf("form not merged: %v", stored)
	}

	if !strings.HasPrefix(res.NavigateURL, "/enroll?") {
		t.Fatalf("navigate url = %q", res.NavigateURL)
	}
	u, _ := url.Parse(res.NavigateURL)
	q := u.Query()
	if q.Get("lang") != "en" || q.Get("areaName") != "Ikoyi" || q.Get("step") != "3" {
		t.Errorf("navigate query missing fields: %s", u.RawQuery)
	}

	c := res.Confirmation
	if c.ID == "" || c.SessionID != "s-1" || c.FormKey != "enroll-42" || c.Source != "drag" {
		t.Errorf("unexpected confirmation %+v", c)
	}
}

func TestConfirmationFlow_DefaultStep(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
		return lagosResponse(), nil
	}}
	f := newFlow(geo, nil, nil)
	marker := domain.Coordinate{Lat: 6.4, Lng: 3.4}

	res, err := f.Confirm(context.Background(), usecases.ConfirmRequest{Marker: &marker, PassThrough: url.Values{"step": {"nope"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Handoff.Step != 1 {
		t.Errorf("step = %d, want 1", res.Handoff.Step)
	}
}

func TestConfirmationFlow_GeocodeFailurePersistsNothing(t *testing.T) {
	geo := &mockGeocoder{} // ZERO_RESULTS
	forms := newMockForms()
	f := newFlow(geo, forms, nil)
	marker := domain.Coordinate{Lat: 4.2, Lng: 6.1}

	_, err := f.Confirm(context.Background(), usecases.ConfirmRequest{FormKey: "k", Marker: &marker})
	if !errors.Is(err, domain.ErrGeocodeMiss) {
		t.Fatalf("expected ErrGeocodeMiss, got %v", err)
	}
	if forms.Stored("k") != nil {
		t.Error("nothing should be persisted on failure")
	}
}

func TestConfirmationFlow_FormStoreFailure(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
		return lagosResponse(), nil
	}}
	forms := newMockForms()
	forms.mergeFn = func(context.Context, string, map[string]string) error { return errors.New("valkey down") }
	f := newFlow(geo, forms, nil)
	marker := domain.Coordinate{Lat: 6.4, Lng: 3.4}

	if _, err := f.Confirm(context.Background(), usecases.ConfirmRequest{FormKey: "k", Marker: &marker}); err == nil {
		t.Fatal("expected an error when the form store fails")
	}
}

func TestConfirmationFlow_Archive(t *testing.T) {
	archiver := newMockArchiver()
	f := newFlow(&mockGeocoder{}, nil, archiver)

	f.Archive(domain.Confirmation{ID: "c-1"})

	select {
	case c := <-archiver.archived:
		if c.ID != "c-1" {
			t.Errorf("archived %q", c.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was not archived")
	}
}
