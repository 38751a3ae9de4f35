package service

import (
	"context"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
)

// Notifier delivers one-time codes out of band.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose) error
}

// DefaultOTPTTL is how long an emailed code stays valid.
const DefaultOTPTTL = 10 * time.Minute

func clockNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock()
}
