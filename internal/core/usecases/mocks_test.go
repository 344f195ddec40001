package usecases_test

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
)

// --- Mock PlaceService ---

type mockPlaces struct {
	suggestFn   func(ctx context.Context, input, token string) ([]domain.Suggestion, error)
	resolveFn   func(ctx context.Context, placeID, token string) (*domain.Place, error)
	findPlaceFn func(ctx context.Context, text string) (*domain.Place, error)

	mu         sync.Mutex
	findCalls  int
	lastTokens []string
}

func (m *mockPlaces) Suggest(ctx context.Context, input, token string) ([]domain.Suggestion, error) {
	m.mu.Lock()
	m.lastTokens = append(m.lastTokens, token)
	m.mu.Unlock()
	if m.suggestFn != nil {
		return m.suggestFn(ctx, input, token)
	}
	return nil, nil
}

func (m *mockPlaces) Resolve(ctx context.Context, placeID, token string) (*domain.Place, error) {
	m.mu.Lock()
	m.lastTokens = append(m.lastTokens, token)
	m.mu.Unlock()
	if m.resolveFn != nil {
		return m.resolveFn(ctx, placeID, token)
	}
	return nil, nil
}

func (m *mockPlaces) FindPlace(ctx context.Context, text string) (*domain.Place, error) {
	m.mu.Lock()
	m.findCalls++
	m.mu.Unlock()
	if m.findPlaceFn != nil {
		return m.findPlaceFn(ctx, text)
	}
	return nil, nil
}

func (m *mockPlaces) FindCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findCalls
}

func (m *mockPlaces) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lastTokens...)
}

// --- Mock ReverseGeocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, c domain.Coordinate) (*domain.GeocodeResponse, error)

	mu    sync.Mutex
	calls int
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinate) (*domain.GeocodeResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.reverseFn != nil {
		return m.reverseFn(ctx, c)
	}
	return &domain.GeocodeResponse{Status: domain.GeocodeStatusZeroResults}, nil
}

func (m *mockGeocoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// lagosResponse is a typical Google reverse-geocoding result for a point in Ikoyi.
func lagosResponse() *domain.GeocodeResponse {
	return &domain.GeocodeResponse{
		Status: domain.GeocodeStatusOK,
		Results: []domain.GeocodeResult{{
			FormattedAddress: "12 Awolowo Rd, Ikoyi, Lagos, Nigeria",
			AddressComponents: []domain.AddressComponent{
				{LongName: "12", ShortName: "12", Types: []string{"street_number"}},
				{LongName: "Awolowo Road", ShortName: "Awolowo Rd", Types: []string{"route"}},
				{LongName: "Ikoyi", ShortName: "Ikoyi", Types: []string{"sublocality_level_1", "sublocality", "political"}},
				{LongName: "Lagos", ShortName: "Lagos", Types: []string{"locality", "political"}},
				{LongName: "Eti-Osa", ShortName: "Eti-Osa", Types: []string{"administrative_area_level_2", "political"}},
				{LongName: "Lagos", ShortName: "LA", Types: []string{"administrative_area_level_1", "political"}},
				{LongName: "Nigeria", ShortName: "NG", Types: []string{"country", "political"}},
			},
		}},
	}
}

// --- Mock StreetViewService ---

type mockStreetView struct {
	mu    sync.Mutex
	asked []domain.Coordinate
}

func (m *mockStreetView) StreetView(_ context.Context, c domain.Coordinate) (*domain.StreetView, error) {
	m.mu.Lock()
	m.asked = append(m.asked, c)
	m.mu.Unlock()
	return &domain.StreetView{Status: "ZERO_RESULTS", Requested: c, Message: domain.StreetViewUnavailable}, nil
}

func (m *mockStreetView) Asked() []domain.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Coordinate(nil), m.asked...)
}

// --- Mock Geolocator ---

type mockLocator struct {
	positionFn func(ctx context.Context, sessionID string) (domain.Coordinate, error)
}

func (m *mockLocator) CurrentPosition(ctx context.Context, sessionID string) (domain.Coordinate, error) {
	if m.positionFn != nil {
		return m.positionFn(ctx, sessionID)
	}
	return domain.Coordinate{}, &domain.GeolocationError{Code: domain.GeoPositionUnavailable}
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock FormStore ---

type mockForms struct {
	mergeFn func(ctx context.Context, key string, fields map[string]string) error

	mu     sync.Mutex
	stored map[string]map[string]string
}

func newMockForms() *mockForms { return &mockForms{stored: make(map[string]map[string]string)} }

func (m *mockForms) Merge(ctx context.Context, key string, fields map[string]string) error {
	if m.mergeFn != nil {
		if err := m.mergeFn(ctx, key, fields); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored[key] == nil {
		m.stored[key] = make(map[string]string)
	}
	for k, v := range fields {
		m.stored[key][k] = v
	}
	return nil
}

func (m *mockForms) Load(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored[key], nil
}

func (m *mockForms) Stored(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored[key]
}

// --- Mock ConfirmationArchiver ---

type mockArchiver struct {
	archived chan domain.Confirmation
}

func newMockArchiver() *mockArchiver { return &mockArchiver{archived: make(chan domain.Confirmation, 8)} }

func (m *mockArchiver) Archive(_ context.Context, c domain.Confirmation) error {
	m.archived <- c
	return nil
}

// --- Fake basemap engine ---

type fakeEngine struct {
	mu    sync.Mutex
	ready bool
	maps  []*fakeMap
}

func (e *fakeEngine) SetReady(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = v
}

func (e *fakeEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *fakeEngine) NewMap(v domain.BasemapVariant, c ports.Container, _ func(domain.BasemapFrame)) (ports.BasemapMap, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil, domain.ErrEngineNotReady
	}
	m := &fakeMap{variant: v, container: c, size: c.Size()}
	e.maps = append(e.maps, m)
	return m, nil
}

func (e *fakeEngine) Variants() []domain.BasemapInfo {
	var out []domain.BasemapInfo
	for _, v := range domain.BasemapVariants() {
		out = append(out, domain.BasemapInfo{Variant: v, Label: string(v), Default: v == domain.DefaultBasemap})
	}
	return out
}

func (e *fakeEngine) Maps() []*fakeMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeMap(nil), e.maps...)
}

type fakeMap struct {
	mu        sync.Mutex
	variant   domain.BasemapVariant
	container ports.Container
	size      domain.Size
	center    domain.Coordinate
	zoom      int
	setCalls  int
	resizes   int
	removed   bool
}

func (m *fakeMap) SetCenter(c domain.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.center = c
	m.setCalls++
}

func (m *fakeMap) SetZoom(z int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoom = z
}

func (m *fakeMap) TriggerResize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = m.container.Size()
	m.resizes++
}

func (m *fakeMap) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
}

func (m *fakeMap) snapshot() (domain.Coordinate, int, domain.Size, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center, m.zoom, m.size, m.removed
}

// --- Recording event bus ---

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, data []byte) error {
	var e domain.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(string, func(ports.Message)) (func(), error) {
	return func() {}, nil
}

func (b *recordingBus) Request(context.Context, string, []byte) ([]byte, error) {
	return nil, ports.ErrNoResponders
}

func (b *recordingBus) Events(kind domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// --- Spawn helpers ---

// syncSpawn runs the task and its continuation inline.
func syncSpawn(task func(ctx context.Context) func()) {
	if apply := task(context.Background()); apply != nil {
		apply()
	}
}

// queuedSpawn holds tasks so tests can complete them in any order.
type queuedSpawn struct {
	tasks []func(ctx context.Context) func()
}

func (q *queuedSpawn) spawn(task func(ctx context.Context) func()) {
	q.tasks = append(q.tasks, task)
}

// run completes task i: the I/O part and then its continuation.
func (q *queuedSpawn) run(i int) {
	if apply := q.tasks[i](context.Background()); apply != nil {
		apply()
	}
}

func nan() float64 { return math.NaN() }
