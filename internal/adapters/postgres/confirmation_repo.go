package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/pinpoint/internal/core/domain"
)

const confirmationColumns = `
	id, session_id, form_key, house_number, street_name, area_name, lga, state,
	latitude, longitude, step, source, confirmed_at`

// ConfirmationRepo implements ports.ConfirmationRepository.
type ConfirmationRepo struct {
	db *DB
}

func NewConfirmationRepo(db *DB) *ConfirmationRepo {
	return &ConfirmationRepo{db: db}
}

// Save is idempotent on the confirmation ID so workflow retries and stream
// redeliveries insert once.
func (r *ConfirmationRepo) Save(ctx context.Context, c *domain.Confirmation) error {
	h := c.Handoff
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO confirmations (`+confirmationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.SessionID, c.FormKey, h.HouseNumber, h.StreetName, h.AreaName, h.LGA, h.State,
		h.Latitude, h.Longitude, h.Step, c.Source, c.ConfirmedAt)
	return err
}

func (r *ConfirmationRepo) GetByID(ctx context.Context, id string) (*domain.Confirmation, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+confirmationColumns+` FROM confirmations WHERE id = $1`, id)
	c, err := scanConfirmation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConfirmationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfirmationRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.Confirmation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+confirmationColumns+`
		FROM confirmations ORDER BY confirmed_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *ConfirmationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM confirmations`).Scan(&n)
	return n, err
}

func (r *ConfirmationRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.Confirmation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+confirmationColumns+`
		FROM confirmations WHERE session_id = $1 ORDER BY confirmed_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func scanConfirmation(row pgx.Row) (domain.Confirmation, error) {
	var c domain.Confirmation
	h := &c.Handoff
	err := row.Scan(&c.ID, &c.SessionID, &c.FormKey, &h.HouseNumber, &h.StreetName, &h.AreaName,
		&h.LGA, &h.State, &h.Latitude, &h.Longitude, &h.Step, &c.Source, &c.ConfirmedAt)
	return c, err
}

func collect(rows pgx.Rows) ([]domain.Confirmation, error) {
	defer rows.Close()
	out := []domain.Confirmation{}
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
