package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

// ListConfirmationsHandler pages through the most recent confirmations.
func ListConfirmationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Confirmations == nil {
			return errUnavailable(c, "confirmation archive not configured")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total, err := deps.Confirmations.Count(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		page := []domain.Confirmation{}
		if offset < total {
			list, err := deps.Confirmations.ListRecent(c.UserContext(), offset, limit)
			if err != nil {
				return errInternal(c, err.Error())
			}
			if list != nil {
				page = list
			}
		}
		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetConfirmationHandler returns one confirmation by ID.
func GetConfirmationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Confirmations == nil {
			return errUnavailable(c, "confirmation archive not configured")
		}
		conf, err := deps.Confirmations.GetByID(c.UserContext(), c.Params("id"))
		if errors.Is(err, domain.ErrConfirmationNotFound) {
			return errNotFound(c, "confirmation not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(conf)
	}
}

// SessionConfirmationsHandler lists confirmations made from one session.
// The session may already be closed.
func SessionConfirmationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Confirmations == nil {
			return errUnavailable(c, "confirmation archive not configured")
		}
		list, err := deps.Confirmations.ListBySession(c.UserContext(), c.Params("id"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		if list == nil {
			list = []domain.Confirmation{}
		}
		return c.JSON(list)
	}
}

// GetFormHandler returns the stored enrollment form fields for a form key.
func GetFormHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Forms == nil {
			return errUnavailable(c, "form store not configured")
		}
		fields, err := deps.Forms.Load(c.UserContext(), c.Params("key"))
		if err != nil {
			return errInternal(c, err.Error())
		}
		if len(fields) == 0 {
			return errNotFound(c, "form not found")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(fields)
	}
}
