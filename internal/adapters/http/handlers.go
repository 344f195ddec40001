package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

const maxQueryLen = 200

type openSessionRequest struct {
	Query   string      `json:"query"`
	FormKey string      `json:"form_key"`
	Basemap string      `json:"basemap"`
	Size    domain.Size `json:"size"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type selectPlaceRequest struct {
	PlaceID string `json:"place_id"`
}

type basemapRequest struct {
	Variant string `json:"variant"`
}

// placementResponse is returned by inputs that may or may not move the
// marker. Coordinate is null when nothing was applied.
type placementResponse struct {
	Coordinate *domain.Coordinate  `json:"coordinate"`
	State      domain.SessionState `json:"state"`
}

// sessionFrom resolves the :id path parameter.
func sessionFrom(c *fiber.Ctx, deps *Dependencies) (*usecases.Session, error) {
	return deps.Picker.Get(c.Params("id"))
}

// withSession wraps a handler that needs the addressed session.
func withSession(deps *Dependencies, fn func(c *fiber.Ctx, s *usecases.Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := sessionFrom(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		return fn(c, s)
	}
}

// respondState replies with the session snapshot.
func respondState(c *fiber.Ctx, s *usecases.Session) error {
	st, err := s.Snapshot(c.UserContext())
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.JSON(st)
}

// OpenSessionHandler mounts a picker session. The query string seeds the
// marker and zoom exactly as the page URL would.
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req openSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		req.Query = strings.TrimPrefix(req.Query, "?")
		if req.Query == "" {
			req.Query = string(c.Request().URI().QueryString())
		}
		if err := req.Size.Validate(); err != nil {
			return errFromDomain(c, err)
		}

		s, err := deps.Picker.Open(c.UserContext(), usecases.OpenRequest{
			Query:   req.Query,
			FormKey: req.FormKey,
			Basemap: domain.BasemapVariant(req.Basemap),
			Size:    req.Size,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		st, err := s.Snapshot(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + s.ID())
		return c.Status(fiber.StatusCreated).JSON(st)
	}
}

// GetSessionHandler returns the session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		return respondState(c, s)
	})
}

// CloseSessionHandler unmounts the session.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Picker.Close(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DragHandler applies a marker drag-end.
func DragHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var pos domain.Coordinate
		if err := c.BodyParser(&pos); err != nil {
			return errBadRequest(c, "body must be {\"lat\":<number>,\"lng\":<number>}")
		}
		st, err := s.Drag(c.UserContext(), pos)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(st)
	})
}

// SearchHandler submits the search box text.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}
		if len(req.Query) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		coord, err := s.Search(c.UserContext(), req.Query)
		if err != nil {
			return errFromDomain(c, err)
		}
		return respondPlacement(c, s, coord)
	})
}

// SuggestHandler returns autocomplete predictions for ?input=.
func SuggestHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		input := strings.TrimSpace(c.Query("input"))
		if input == "" {
			return c.JSON([]domain.Suggestion{})
		}
		if len(input) > maxQueryLen {
			return errBadRequest(c, "input too long (max 200 characters)")
		}
		suggestions, err := s.Suggest(c.UserContext(), input)
		if err != nil {
			return errFromDomain(c, err)
		}
		if suggestions == nil {
			suggestions = []domain.Suggestion{}
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(suggestions)
	})
}

// SelectPlaceHandler applies an autocomplete selection.
func SelectPlaceHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var req selectPlaceRequest
		if err := c.BodyParser(&req); err != nil || req.PlaceID == "" {
			return errBadRequest(c, "place_id is required")
		}
		coord, err := s.SelectPlace(c.UserContext(), req.PlaceID)
		if err != nil {
			return errFromDomain(c, err)
		}
		return respondPlacement(c, s, coord)
	})
}

// GeolocateHandler asks the device for its position. With ?wait=true the
// response carries the outcome; otherwise it arrives on the event stream.
func GeolocateHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		if !c.QueryBool("wait", false) {
			if err := s.Locate(c.UserContext()); err != nil {
				return errFromDomain(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "requested"})
		}
		coord, err := s.LocateWait(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return respondPlacement(c, s, coord)
	})
}

// ViewHandler reports a pan or zoom of the primary map.
func ViewHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var req domain.ViewCommand
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "body must be {\"center\":{...},\"zoom\":<int>}")
		}
		if err := s.ReportView(c.UserContext(), req.Center, req.Zoom); err != nil {
			return errFromDomain(c, err)
		}
		return respondState(c, s)
	})
}

// ResizeHandler reports a new primary container size.
func ResizeHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var size domain.Size
		if err := c.BodyParser(&size); err != nil {
			return errBadRequest(c, "body must be {\"w\":<int>,\"h\":<int>}")
		}
		if err := s.ReportResize(c.UserContext(), size); err != nil {
			return errFromDomain(c, err)
		}
		return respondState(c, s)
	})
}

// CursorHandler tracks the pointer for the coordinate readout.
func CursorHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var pos domain.Coordinate
		if err := c.BodyParser(&pos); err != nil {
			return errBadRequest(c, "body must be {\"lat\":<number>,\"lng\":<number>}")
		}
		vp, err := s.Hover(c.UserContext(), pos)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(vp)
	})
}

// ResetZoomHandler returns the primary map to the default zoom.
func ResetZoomHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		if err := s.ResetZoom(c.UserContext()); err != nil {
			return errFromDomain(c, err)
		}
		return respondState(c, s)
	})
}

// BasemapHandler switches the overlay variant.
func BasemapHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		var req basemapRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		v, err := domain.ParseBasemapVariant(req.Variant)
		if err != nil {
			return errFromDomain(c, err)
		}
		st, err := s.SetBasemap(c.UserContext(), v)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(st)
	})
}

// ClearMarkerHandler removes the marker.
func ClearMarkerHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		if err := s.ClearMarker(c.UserContext()); err != nil {
			return errFromDomain(c, err)
		}
		return respondState(c, s)
	})
}

// ConfirmHandler geocodes the marker and hands the address to the form.
func ConfirmHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		res, err := s.Confirm(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	})
}

// StreetViewHandler reports whether a Street View panorama exists at the
// marker.
func StreetViewHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, s *usecases.Session) error {
		sv, err := s.StreetView(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sv)
	})
}

// ListBasemapsHandler lists the selectable overlay variants.
func ListBasemapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		variants := deps.Picker.Basemaps()
		if variants == nil {
			variants = []domain.BasemapInfo{}
		}
		return c.JSON(fiber.Map{
			"ready":    deps.Picker.BasemapReady(),
			"variants": variants,
		})
	}
}

func respondPlacement(c *fiber.Ctx, s *usecases.Session, coord *domain.Coordinate) error {
	st, err := s.Snapshot(c.UserContext())
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.JSON(placementResponse{Coordinate: coord, State: st})
}
