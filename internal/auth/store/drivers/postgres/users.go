package postgres

import (
	"context"
	"database/sql"
	"fmt"
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
		otpExpiresAt sql.NullTime
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
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapError(err)
	}

	u.MFAMethod = domain.MFAMethod(method)
	u.RefreshTokenHash = mapNullStringPtr(refreshHash)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	if otpCode.Valid && otpExpiresAt.Valid {
		u.OTP = &domain.OTPChallenge{
			Code:      otpCode.String,
			Purpose:   domain.OTPPurpose(otpPurpose.String),
			ExpiresAt: otpExpiresAt.Time.UTC(),
		}
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		domain.NormalizeEmail(email),
	))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
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
		INSERT INTO users (id, email, password_hash, role, mfa_enabled, mfa_method, totp_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Role,
		u.MFAEnabled,
		string(u.MFAMethod),
		totp,
	)
	return mapError(err)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
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
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
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
		set("otp_expires_at", p.OTP.ExpiresAt.UTC())
	case p.ClearOTP:
		sets = append(sets, "otp_code = NULL", "otp_purpose = NULL", "otp_expires_at = NULL")
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
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
		SET otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND otp_code = $2 AND otp_purpose = $3 AND otp_expires_at >= $4`,
		id, code, string(purpose), now.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *usersRepo) SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = now()
		WHERE id = $2 AND refresh_token_hash IS NOT DISTINCT FROM $3`,
		nullIfEmpty(next), id, nullIfEmpty(expected),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *usersRepo) ReplacePasswordHash(ctx context.Context, id, expected, next string) (bool, error) {
	if next == "" {
		return false, store.ErrInvalidPatch
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, refresh_token_hash = NULL,
			otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $2 AND password_hash = $3`,
		next, id, expected,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *usersRepo) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET otp_code = NULL, otp_purpose = NULL, otp_expires_at = NULL
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
