package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store/drivers/sqlite"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/otpx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func totpAt(secret string, at time.Time) (string, error) {
	return otpx.TOTPCodeAt(secret, at)
}

// interleavedStore runs before ahead of every conditional write, standing in
// for a second request that lands between a read and the write.
type interleavedStore struct {
	*sqlite.Store
	before func(ctx context.Context, users store.Users, id string)
}

func (s *interleavedStore) Users() store.Users {
	return &interleavedUsers{Users: s.Store.Users(), before: s.before}
}

type interleavedUsers struct {
	store.Users
	before func(ctx context.Context, users store.Users, id string)
}

func (u *interleavedUsers) SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error) {
	u.before(ctx, u.Users, id)
	return u.Users.SwapRefreshTokenHash(ctx, id, expected, next)
}

func (u *interleavedUsers) ReplacePasswordHash(ctx context.Context, id, expected, next string) (bool, error) {
	u.before(ctx, u.Users, id)
	return u.Users.ReplacePasswordHash(ctx, id, expected, next)
}
