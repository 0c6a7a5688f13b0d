package referral

import (
	"context"

	"github.com/google/uuid"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
)

// Registry is the persistent record of issued referral codes. Not-found
// lookups return repository.ErrCodeNotFound.
type Registry interface {
	FindByCode(ctx context.Context, code string) (*models.ReferralCode, error)
	FindActiveByReferrerEmail(ctx context.Context, email string) (*models.ReferralCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, code *models.ReferralCode) error
	ListCodes(ctx context.Context) ([]models.ReferralCode, error)
	IncrementUsage(ctx context.Context, codeID int64) error
	UpdateStatus(ctx context.Context, codeID int64, status models.CodeStatus, notes string) error
}

// RedemptionStore persists redemption records. Record must apply the
// redemption insert and the code's usage increment as one atomic unit,
// enforcing both the (code, referee) uniqueness and the usage ceiling at the
// storage layer.
type RedemptionStore interface {
	Exists(ctx context.Context, codeID int64, refereeEmail string) (bool, error)
	Record(ctx context.Context, redemption *models.Redemption) error
	ListByCode(ctx context.Context, codeID int64) ([]models.Redemption, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// ContactStore is the CRM collaborator the recorder links referees through.
type ContactStore interface {
	GetOrCreateByEmail(ctx context.Context, email, name, phone string) (int64, error)
}

// WelcomeEmail is the payload for the referee confirmation message.
type WelcomeEmail struct {
	To                string
	RefereeName       string
	ReferrerName      string
	Code              string
	DiscountFormatted string
}

// Notifier delivers referral emails. Sends are best-effort; failures are
// logged and never affect the redemption outcome.
type Notifier interface {
	SendReferralWelcome(email WelcomeEmail) error
}
