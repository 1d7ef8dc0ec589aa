package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"taskhub/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	ListActiveWithEmail(ctx context.Context) ([]models.User, error)
	UpdateTelegramChat(ctx context.Context, userID, chatID int64) error

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, first_name, last_name, email, password_hash, is_active,
	telegram_chat_id, refresh_token, refresh_expires_at, refresh_revoked, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		rt  sql.NullString
		rte sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.IsActive,
		&u.TelegramChatID, &rt, &rte, &u.RefreshRevoked, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rt.Valid {
		s := rt.String
		u.RefreshToken = &s
	}
	if rte.Valid {
		t := rte.Time
		u.RefreshExpiresAt = &t
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (username, first_name, last_name, email, password_hash, is_active, telegram_chat_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, q,
		user.Username, user.FirstName, user.LastName, user.Email,
		user.PasswordHash, user.IsActive, user.TelegramChatID,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
}

func (r *userRepository) ListActiveWithEmail(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active AND email <> '' ORDER BY id`)
}

func (r *userRepository) list(ctx context.Context, q string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (r *userRepository) UpdateTelegramChat(ctx context.Context, userID, chatID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET telegram_chat_id=$1 WHERE id=$2`, chatID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ===== refresh helpers =====

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3`
	res, err := r.db.ExecContext(ctx, q, token, expiresAt, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// RotateRefresh swaps oldToken for newToken atomically; a token can be rotated once.
func (r *userRepository) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	const q = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE refresh_token=$3 AND NOT refresh_revoked AND refresh_expires_at > NOW()
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q, newToken, newExpiresAt, oldToken))
}

func (r *userRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token))
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
