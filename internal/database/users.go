package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"staybook/internal/models"
)

// UpsertProfile создает или обновляет профиль пользователя
func (db *DB) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	query := `INSERT INTO user_profiles (user_id, name, email, phone, address, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(user_id) DO UPDATE SET
                  name = excluded.name,
                  email = excluded.email,
                  phone = excluded.phone,
                  address = excluded.address,
                  updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		p.UserID, p.Name, strings.ToLower(strings.TrimSpace(p.Email)), p.Phone, p.Address, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT user_id, name, email, phone, address, created_at, updated_at
              FROM user_profiles WHERE user_id = ?`
	return db.scanProfile(db.QueryRowContext(ctx, query, userID))
}

// GetProfileByEmail resolves a user by email, the webhook fallback when the
// provider metadata carries no user id.
func (db *DB) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	query := `SELECT user_id, name, email, phone, address, created_at, updated_at
              FROM user_profiles WHERE email = ?`
	return db.scanProfile(db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (db *DB) scanProfile(row *sql.Row) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	var name, email, phone, address sql.NullString
	err := row.Scan(&p.UserID, &name, &email, &phone, &address, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Name = name.String
	p.Email = email.String
	p.Phone = phone.String
	p.Address = address.String
	return p, nil
}
