// Package company holds the single-row shop profile printed on receipts.
package company

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/receipt"
)

// Settings is the shop profile. Exactly one row exists; updates rewrite it.
type Settings struct {
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	ReceiptWidth int       `json:"receipt_width"`
	FooterText   string    `json:"footer_text"`
	ReturnPolicy string    `json:"return_policy"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReceiptSettings projects the profile into what the renderer needs.
func (s Settings) ReceiptSettings() receipt.Settings {
	return receipt.Settings{
		CompanyName:  s.Name,
		Address:      s.Address,
		Phone:        s.Phone,
		Width:        s.ReceiptWidth,
		FooterText:   s.FooterText,
		ReturnPolicy: s.ReturnPolicy,
	}
}

// UpdateRequest carries payload for PUT /company.
type UpdateRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Address      string `json:"address" validate:"required,max=255"`
	Phone        string `json:"phone" validate:"required,max=30"`
	Email        string `json:"email" validate:"omitempty,email"`
	ReceiptWidth int    `json:"receipt_width" validate:"gte=32,lte=80"`
	FooterText   string `json:"footer_text" validate:"max=255"`
	ReturnPolicy string `json:"return_policy" validate:"max=255"`
}

// Repository persists the profile in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the profile.
func (r *Repository) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT name, address, phone, email, receipt_width, footer_text, return_policy, updated_at
		FROM company_settings WHERE id = 1`).
		Scan(&s.Name, &s.Address, &s.Phone, &s.Email, &s.ReceiptWidth, &s.FooterText, &s.ReturnPolicy, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ReceiptSettings returns the profile in the shape the renderer wants.
func (r *Repository) ReceiptSettings(ctx context.Context) (receipt.Settings, error) {
	s, err := r.Get(ctx)
	if err != nil {
		return receipt.Settings{}, err
	}
	return s.ReceiptSettings(), nil
}

// Update rewrites the profile.
func (r *Repository) Update(ctx context.Context, req UpdateRequest) (*Settings, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE company_settings
		SET name = $1, address = $2, phone = $3, email = $4, receipt_width = $5, footer_text = $6, return_policy = $7, updated_at = NOW()
		WHERE id = 1`,
		req.Name, req.Address, req.Phone, req.Email, req.ReceiptWidth, req.FooterText, req.ReturnPolicy)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
