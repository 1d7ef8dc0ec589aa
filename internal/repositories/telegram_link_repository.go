package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskhub/internal/models"
)

type TelegramLinkRepository interface {
	Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error)
	// UseByCode marks an unused, unexpired code as used. Anything else is ErrNotFound.
	UseByCode(ctx context.Context, code string) (*models.TelegramLink, error)
}

type telegramLinkRepository struct{ db *sql.DB }

func NewTelegramLinkRepository(db *sql.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

const linkColumns = `id, user_id, code, expires_at, used, created_at`

func scanLink(row rowScanner) (*models.TelegramLink, error) {
	var l models.TelegramLink
	if err := row.Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+linkColumns, userID, code, time.Now().Add(ttl))
	l, err := scanLink(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return l, err
}

func (r *telegramLinkRepository) UseByCode(ctx context.Context, code string) (*models.TelegramLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := scanLink(tx.QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM telegram_links
		WHERE code=$1
		FOR UPDATE`, code))
	if err != nil {
		return nil, err
	}
	if l.Used || time.Now().After(l.ExpiresAt) {
		return nil, ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE telegram_links SET used=TRUE WHERE id=$1`, l.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	l.Used = true
	return l, nil
}
