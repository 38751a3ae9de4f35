package notify

import (
	"context"
	"log/slog"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// Log writes codes to the structured log instead of sending them.
// Only meant for local development.
type Log struct{}

func (Log) SendOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose) error {
	slogx.FromContext(ctx).Warn("one-time code (development notifier)",
		slog.String("email", email),
		slog.String("purpose", string(purpose)),
		slog.String("code", code),
	)
	return nil
}
