package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

// Referee identifies the prospective new customer redeeming a code.
type Referee struct {
	Email string
	Name  string
	Phone string
}

// Recorder applies validated redemptions: it re-validates, links the referee
// to a CRM contact, persists the redemption together with the code's usage
// increment, and sends the welcome email as a detached best-effort step.
type Recorder struct {
	validator   *Validator
	redemptions RedemptionStore
	contacts    ContactStore
	notifier    Notifier
}

func NewRecorder(validator *Validator, redemptions RedemptionStore, contacts ContactStore, notifier Notifier) *Recorder {
	return &Recorder{
		validator:   validator,
		redemptions: redemptions,
		contacts:    contacts,
		notifier:    notifier,
	}
}

// Redeem records one use of a code by one referee. The caller's earlier
// validation is never trusted; the full check runs again here, and the store
// independently enforces the uniqueness and usage-cap rules at commit time.
func (r *Recorder) Redeem(ctx context.Context, code string, referee Referee, bookingID string) (*models.Redemption, error) {
	admission, err := r.validator.Validate(ctx, code, referee.Email)
	if err != nil {
		return nil, err
	}

	refereeEmail := NormalizeEmail(referee.Email)

	contactID, err := r.contacts.GetOrCreateByEmail(ctx, refereeEmail, referee.Name, referee.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contact for referee: %w", err)
	}

	redemption := &models.Redemption{
		ID:             uuid.New(),
		ReferralCodeID: admission.Code.ID,
		RefereeName:    referee.Name,
		RefereeEmail:   refereeEmail,
		ContactID:      &contactID,
		RedeemedAt:     time.Now(),
	}
	if referee.Phone != "" {
		redemption.RefereePhone = &referee.Phone
	}
	if bookingID != "" {
		redemption.BookingID = &bookingID
	}

	// Fixed discounts settle both amounts now; percentage discounts stay
	// unresolved until a booking price is known.
	if admission.Discount.Type() == models.DiscountTypeFixed {
		amount := admission.Discount.Value()
		redemption.RefereeDiscountAmount = &amount
		credit := admission.Discount.Value()
		redemption.ReferrerCreditAmount = &credit
	}

	if err := r.redemptions.Record(ctx, redemption); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRedeemed):
			return nil, Reject(ReasonAlreadyRedeemed)
		case errors.Is(err, repository.ErrMaxUsesReached):
			return nil, Reject(ReasonMaxUsesReached)
		default:
			return nil, fmt.Errorf("failed to record redemption: %w", err)
		}
	}

	go r.sendWelcome(admission, redemption)

	return redemption, nil
}

// MarkBookingCompleted is the single mutation hook exposed to the
// booking-completion workflow.
func (r *Recorder) MarkBookingCompleted(ctx context.Context, redemptionID uuid.UUID) error {
	return r.redemptions.MarkCompleted(ctx, redemptionID)
}

func (r *Recorder) sendWelcome(admission *Admission, redemption *models.Redemption) {
	err := r.notifier.SendReferralWelcome(WelcomeEmail{
		To:                redemption.RefereeEmail,
		RefereeName:       redemption.RefereeName,
		ReferrerName:      admission.Code.ReferrerName,
		Code:              admission.Code.Code,
		DiscountFormatted: admission.Discount.Formatted(),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"code":          admission.Code.Code,
			"referee_email": redemption.RefereeEmail,
		}).WithError(err).Warn("Failed to send referral welcome email")
	}
}
