package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
)

const userColumns = `id, email, password_hash, role, refresh_token_hash, mfa_enabled, mfa_method,
	totp_secret, otp_code, otp_purpose, otp_expires_at, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		method       string
		refreshHash  sql.NullString
		totpSecret   sql.NullString
		otpCode      sql.NullString
		otpPurpose   sql.NullString
		otpExpiresAt sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&refreshHash,
		&u.MFAEnabled,
		&method,
		&totpSecret,
		&otpCode,
		&otpPurpose,
		&otpExpiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.MFAMethod = domain.MFAMethod(method)
	u.RefreshTokenHash = mapNullStringPtr(refreshHash)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	if otpCode.Valid && otpExpiresAt.Valid {
		u.OTP = &domain.OTPChallenge{
			Code:      otpCode.String,
			Purpose:   domain.OTPPurpose(otpPurpose.String),
			ExpiresAt: fromMillis(otpExpiresAt.Int64),
		}
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		domain.NormalizeEmail(email),
	)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := toMillis(time.Now())
	if u.MFAMethod == "" {
		u.MFAMethod = domain.MFAMethodEmail
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	var totp sql.NullString
	if u.TOTPSecret != nil {
		totp = nullIfEmpty(*u.TOTPSecret)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, mfa_enabled, mfa_method, totp_secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Role,
		u.MFAEnabled,
		string(u.MFAMethod),
		totp,
		now,
		now,
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, id string, p domain.UserPatch) (domain.User, error) {
	if err := store.ValidatePatch(p); err != nil {
		return domain.User{}, err
	}
	if p.IsEmpty() {
		return r.GetUserByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.PasswordHash != nil {
		set("password_hash", *p.PasswordHash)
	}
	if p.Role != nil {
		set("role", *p.Role)
	}
	if p.RefreshTokenHash != nil {
		set("refresh_token_hash", nullIfEmpty(*p.RefreshTokenHash))
	}
	if p.MFAEnabled != nil {
		set("mfa_enabled", *p.MFAEnabled)
	}
	if p.MFAMethod != nil {
		set("mfa_method", string(*p.MFAMethod))
	}
	if p.TOTPSecret != nil {
		set("totp_secret", nullIfEmpty(*p.TOTPSecret))
	}
	switch {
	case p.OTP != nil:
		set("otp_code", p.OTP.Code)
		set("otp_purpose", string(p.OTP.Purpose))
		set("otp_expires_at", toMillis(p.OTP.ExpiresAt))
	case p.ClearOTP:
		sets = append(sets, "otp_code = NULL", "otp_purpose = NULL", "otp_expires_at = NULL")
	}
	set("updated_at", toMillis(time.Now()))
	args = append(args, id)

	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+userColumns,
		args...,
	)
	return scanUser(row)
}

func (r *usersRepo) ConsumeOTP(
	ctx context.Context,
	id string,
	purpose domain.OTPPurpose,
	code string,
	now time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE id = ? AND otp_code = ? AND otp_purpose = ? AND otp_expires_at >= ?`,
		toMillis(now), id, code, string(purpose), toMillis(now),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = ?, updated_at = ?
		WHERE id = ? AND refresh_token_hash IS ?`,
		nullIfEmpty(next), toMillis(time.Now()), id, nullIfEmpty(expected),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) ReplacePasswordHash(ctx context.Context, id, expected, next string) (bool, error) {
	if next == "" {
		return false, store.ErrInvalidPatch
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, refresh_token_hash = NULL,
			otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE id = ? AND password_hash = ?`,
		next, toMillis(time.Now()), id, expected,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at < ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
