package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

const (
	wsPingInterval  = 30 * time.Second
	wsActionTimeout = 20 * time.Second
	// wsReplyTTL applies when a position request carries no timeout.
	wsReplyTTL = 30 * time.Second
)

// pendingReplies holds device position requests waiting for the page. An
// entry lives until the page answers, its deadline passes or the connection
// ends.
type pendingReplies struct {
	mu      sync.Mutex
	entries map[string]*pendingReply
}

type pendingReply struct {
	respond func([]byte) error
	timer   *time.Timer
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{entries: make(map[string]*pendingReply)}
}

// add registers respond under id and drops it after ttl.
func (p *pendingReplies) add(id string, respond func([]byte) error, ttl time.Duration) {
	if ttl <= 0 {
		ttl = wsReplyTTL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[id] = &pendingReply{
		respond: respond,
		timer: time.AfterFunc(ttl, func() {
			p.mu.Lock()
			delete(p.entries, id)
			p.mu.Unlock()
		}),
	}
}

// take removes and returns the responder for id.
func (p *pendingReplies) take(id string) (func([]byte) error, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	e.timer.Stop()
	delete(p.entries, id)
	return e.respond, true
}

// drain answers every open request with reply and empties the table.
func (p *pendingReplies) drain(reply []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		e.timer.Stop()
		_ = e.respond(reply)
		delete(p.entries, id)
	}
}

func (p *pendingReplies) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// wsMessage is a client action. Ref is echoed back on the reply.
type wsMessage struct {
	Action  string          `json:"action"`
	Ref     string          `json:"ref,omitempty"`
	ReplyID string          `json:"reply_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsReply answers one client action.
type wsReply struct {
	Type  string    `json:"type"` // "ack" | "error"
	Ref   string    `json:"ref,omitempty"`
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// wsGeolocate is pushed to the client when the session needs the device
// position. The client answers with a geolocation_result action carrying
// the same reply_id.
type wsGeolocate struct {
	ReplyID string                    `json:"reply_id"`
	Request domain.GeolocationRequest `json:"request"`
}

// slow actions wait on vendor calls and run off the read loop.
var slowActions = map[string]bool{
	"search":       true,
	"suggest":      true,
	"select_place": true,
	"confirm":      true,
	"geolocate":    true,
}

// WebSocketHandler relays a session's event stream to the connected page
// and applies the page's actions to the session. It also answers the
// session's device position requests by asking the page.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		logger := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())

		sess, err := deps.Picker.Get(sessionID)
		if err != nil {
			_ = c.WriteJSON(wsReply{Type: "error", Error: &APIError{Status: 404, Code: "not_found", Message: err.Error()}})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		var mu sync.Mutex
		writeRaw := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(data)
		}

		unsubEvents, err := deps.Bus.Subscribe(domain.SessionSubject(sessionID), func(msg ports.Message) {
			_ = writeRaw(msg.Data)
		})
		if err != nil {
			logger.Error("ws event subscribe failed", "error", err)
			return
		}
		defer unsubEvents()

		// Device position requests wait here until the page replies.
		pending := newPendingReplies()

		unsubGeo, err := deps.Bus.Subscribe(domain.GeolocateSubject(sessionID), func(msg ports.Message) {
			if msg.Respond == nil {
				return
			}
			var req domain.GeolocationRequest
			_ = json.Unmarshal(msg.Data, &req)
			replyID := uuid.NewString()
			pending.add(replyID, msg.Respond, time.Duration(req.TimeoutMS)*time.Millisecond)
			_ = writeJSON(domain.Event{
				Type:      domain.EventGeolocate,
				SessionID: sessionID,
				At:        time.Now().UTC(),
				Payload:   wsGeolocate{ReplyID: replyID, Request: req},
			})
		})
		if err != nil {
			logger.Error("ws geolocate subscribe failed", "error", err)
			return
		}
		defer unsubGeo()

		// Requests still open when the page leaves are answered as
		// position-unavailable rather than left to time out.
		defer func() {
			gone, _ := json.Marshal(domain.GeolocationReply{Error: &domain.GeolocationError{
				Code:    domain.GeoPositionUnavailable,
				Message: "device disconnected",
			}})
			pending.drain(gone)
		}()

		if st, err := sess.Snapshot(context.Background()); err == nil {
			_ = writeJSON(domain.Event{Type: domain.EventState, SessionID: sessionID, At: time.Now().UTC(), Payload: st})
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-sess.Done():
					// Session torn down: unblock the read loop.
					_ = c.Close()
					return
				case <-done:
					return
				}
			}
		}()

		var inflight sync.WaitGroup
		defer inflight.Wait()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(wsReply{Type: "error", Error: &APIError{Status: 400, Code: "bad_request", Message: "invalid JSON"}})
				continue
			}

			if m.Action == "geolocation_result" {
				respond, ok := pending.take(m.ReplyID)
				if !ok {
					_ = writeJSON(wsReply{Type: "error", Ref: m.Ref, Error: &APIError{Status: 404, Code: "not_found", Message: "unknown reply_id"}})
					continue
				}
				if err := respond(m.Payload); err != nil {
					logger.Warn("geolocation reply failed", "error", err)
				}
				continue
			}

			run := func(m wsMessage) {
				ctx, cancel := context.WithTimeout(context.Background(), wsActionTimeout)
				defer cancel()
				data, err := dispatchAction(ctx, sess, m)
				if err != nil {
					status, code := errorStatus(err)
					_ = writeJSON(wsReply{Type: "error", Ref: m.Ref, Error: &APIError{Status: status, Code: code, Message: err.Error()}})
					return
				}
				_ = writeJSON(wsReply{Type: "ack", Ref: m.Ref, Data: data})
			}

			if slowActions[m.Action] {
				inflight.Add(1)
				go func(m wsMessage) {
					defer inflight.Done()
					run(m)
				}(m)
				continue
			}
			run(m)
		}

		logger.Info("ws client disconnected")
	}
}

// dispatchAction applies one client action to the session.
func dispatchAction(ctx context.Context, s *usecases.Session, m wsMessage) (any, error) {
	decode := func(v any) error {
		if len(m.Payload) == 0 {
			return fmt.Errorf("%w: %s requires a payload", domain.ErrInvalidInput, m.Action)
		}
		if err := json.Unmarshal(m.Payload, v); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return nil
	}

	switch m.Action {
	case "snapshot":
		return s.Snapshot(ctx)

	case "drag":
		var pos domain.Coordinate
		if err := decode(&pos); err != nil {
			return nil, err
		}
		return s.Drag(ctx, pos)

	case "search":
		var req searchRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		if req.Query == "" || len(req.Query) > maxQueryLen {
			return nil, fmt.Errorf("%w: query must be 1-%d characters", domain.ErrInvalidInput, maxQueryLen)
		}
		return s.Search(ctx, req.Query)

	case "suggest":
		var req struct {
			Input string `json:"input"`
		}
		if err := decode(&req); err != nil {
			return nil, err
		}
		return s.Suggest(ctx, req.Input)

	case "select_place":
		var req selectPlaceRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		return s.SelectPlace(ctx, req.PlaceID)

	case "geolocate":
		return nil, s.Locate(ctx)

	case "view":
		var req domain.ViewCommand
		if err := decode(&req); err != nil {
			return nil, err
		}
		return nil, s.ReportView(ctx, req.Center, req.Zoom)

	case "resize":
		var size domain.Size
		if err := decode(&size); err != nil {
			return nil, err
		}
		return nil, s.ReportResize(ctx, size)

	case "cursor":
		var pos domain.Coordinate
		if err := decode(&pos); err != nil {
			return nil, err
		}
		return s.Hover(ctx, pos)

	case "reset_zoom":
		return nil, s.ResetZoom(ctx)

	case "set_basemap":
		var req basemapRequest
		if err := decode(&req); err != nil {
			return nil, err
		}
		v, err := domain.ParseBasemapVariant(req.Variant)
		if err != nil {
			return nil, err
		}
		return s.SetBasemap(ctx, v)

	case "clear_marker":
		return nil, s.ClearMarker(ctx)

	case "confirm":
		return s.Confirm(ctx)

	case "streetview":
		return s.StreetView(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, m.Action)
	}
}
