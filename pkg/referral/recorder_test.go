package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
)

func newTestRecorder(store *memStore) (*Recorder, *memContacts, *recordingNotifier) {
	contacts := newMemContacts()
	notifier := newRecordingNotifier()
	recorder := NewRecorder(NewValidator(store, store), store, contacts, notifier)
	return recorder, contacts, notifier
}

func TestRedeemRecordsAndCounts(t *testing.T) {
	store := newMemStore()
	code := seedActiveCode(store)
	recorder, contacts, notifier := newTestRecorder(store)

	redemption, err := recorder.Redeem(context.Background(), code.Code,
		Referee{Email: "Friend@Y.com", Name: "Friend", Phone: "07700900000"}, "bk_123")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if redemption.RefereeEmail != "friend@y.com" {
		t.Errorf("expected normalized referee email, got %q", redemption.RefereeEmail)
	}
	if redemption.BookingID == nil || *redemption.BookingID != "bk_123" {
		t.Error("expected booking id to be linked")
	}
	if redemption.RefereeDiscountAmount == nil || !redemption.RefereeDiscountAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected referee discount of 10, got %v", redemption.RefereeDiscountAmount)
	}
	if redemption.ReferrerCreditAmount == nil || !redemption.ReferrerCreditAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected referrer credit of 10, got %v", redemption.ReferrerCreditAmount)
	}
	if redemption.ContactID == nil {
		t.Fatal("expected redemption linked to a contact")
	}
	if _, ok := contacts.byMail["friend@y.com"]; !ok {
		t.Error("expected a contact created for the referee")
	}

	updated, _ := store.FindByCode(context.Background(), code.Code)
	if updated.TotalUses != 1 {
		t.Errorf("expected total uses 1, got %d", updated.TotalUses)
	}

	select {
	case email := <-notifier.sent:
		if email.To != "friend@y.com" {
			t.Errorf("welcome email sent to %q", email.To)
		}
		if email.DiscountFormatted != "£10.00 off" {
			t.Errorf("welcome email discount %q", email.DiscountFormatted)
		}
	case <-time.After(time.Second):
		t.Error("expected a welcome email send")
	}
}

func TestRedeemPercentageDefersAmounts(t *testing.T) {
	store := newMemStore()
	store.seedCode(models.ReferralCode{
		Code:          "LUKE-SARAH-PC15",
		ReferrerName:  "Sarah Lee",
		ReferrerEmail: "sarah@x.com",
		Status:        models.CodeStatusActive,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(15),
		MaxUses:       10,
	})
	recorder, _, _ := newTestRecorder(store)

	redemption, err := recorder.Redeem(context.Background(), "LUKE-SARAH-PC15",
		Referee{Email: "friend@y.com", Name: "Friend"}, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if redemption.RefereeDiscountAmount != nil || redemption.ReferrerCreditAmount != nil {
		t.Error("percentage amounts must stay unresolved until a booking price is known")
	}
}

func TestRedeemSecondAttemptRejected(t *testing.T) {
	store := newMemStore()
	code := seedActiveCode(store)
	recorder, _, _ := newTestRecorder(store)
	ctx := context.Background()

	if _, err := recorder.Redeem(ctx, code.Code, Referee{Email: "friend@y.com", Name: "Friend"}, ""); err != nil {
		t.Fatalf("first Redeem failed: %v", err)
	}
	_, err := recorder.Redeem(ctx, code.Code, Referee{Email: "friend@y.com", Name: "Friend"}, "")
	assertRejected(t, err, ReasonAlreadyRedeemed)

	updated, _ := store.FindByCode(ctx, code.Code)
	if updated.TotalUses != 1 {
		t.Errorf("rejected retry must not count a use, total_uses = %d", updated.TotalUses)
	}
}

func TestRedeemCapRaceRejectsAtCommit(t *testing.T) {
	store := newMemStore()
	store.seedCode(models.ReferralCode{
		Code:          "LUKE-SARAH-LAST",
		ReferrerName:  "Sarah Lee",
		ReferrerEmail: "sarah@x.com",
		Status:        models.CodeStatusActive,
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		TotalUses:     1,
		MaxUses:       2,
	})
	recorder, _, _ := newTestRecorder(store)
	ctx := context.Background()

	if _, err := recorder.Redeem(ctx, "LUKE-SARAH-LAST", Referee{Email: "second@y.com", Name: "Second"}, ""); err != nil {
		t.Fatalf("redeem of final slot failed: %v", err)
	}
	_, err := recorder.Redeem(ctx, "LUKE-SARAH-LAST", Referee{Email: "third@y.com", Name: "Third"}, "")
	assertRejected(t, err, ReasonMaxUsesReached)

	reds, _ := store.ListByCode(ctx, store.codes["LUKE-SARAH-LAST"].ID)
	if len(reds) != 2 {
		t.Errorf("expected 2 redemption records, got %d", len(reds))
	}
}

func TestRedeemNotificationFailureDoesNotFailRedemption(t *testing.T) {
	store := newMemStore()
	code := seedActiveCode(store)
	contacts := newMemContacts()
	notifier := newRecordingNotifier()
	notifier.err = errors.New("smtp unreachable")
	recorder := NewRecorder(NewValidator(store, store), store, contacts, notifier)

	if _, err := recorder.Redeem(context.Background(), code.Code, Referee{Email: "friend@y.com", Name: "Friend"}, ""); err != nil {
		t.Fatalf("Redeem must succeed despite notification failure: %v", err)
	}

	select {
	case <-notifier.sent:
	case <-time.After(time.Second):
		t.Error("expected a send attempt")
	}
}

func TestMarkBookingCompleted(t *testing.T) {
	store := newMemStore()
	code := seedActiveCode(store)
	recorder, _, _ := newTestRecorder(store)
	ctx := context.Background()

	redemption, err := recorder.Redeem(ctx, code.Code, Referee{Email: "friend@y.com", Name: "Friend"}, "")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if err := recorder.MarkBookingCompleted(ctx, redemption.ID); err != nil {
		t.Fatalf("MarkBookingCompleted failed: %v", err)
	}
	reds, _ := store.ListByCode(ctx, redemption.ReferralCodeID)
	if !reds[0].BookingCompleted {
		t.Error("expected booking_completed to be set")
	}
}
