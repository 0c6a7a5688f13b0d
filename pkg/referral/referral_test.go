package referral

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/config"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

// memStore is an in-memory stand-in for the pgx repositories, enforcing the
// same storage-level rules: unique codes, unique (code, referee) pairs, and
// the conditional usage increment.
type memStore struct {
	mu          sync.Mutex
	nextCodeID  int64
	codes       map[string]*models.ReferralCode
	redemptions []models.Redemption

	failCreate       bool
	failOnEachOp     error
	codeExistsAlways bool
	createdCount     int
}

func newMemStore() *memStore {
	return &memStore{codes: make(map[string]*models.ReferralCode)}
}

func (s *memStore) FindByCode(_ context.Context, code string) (*models.ReferralCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnEachOp != nil {
		return nil, s.failOnEachOp
	}
	record, ok := s.codes[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *memStore) FindActiveByReferrerEmail(_ context.Context, email string) (*models.ReferralCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.codes {
		if strings.EqualFold(record.ReferrerEmail, email) &&
			record.EffectiveStatus(time.Now()) == models.CodeStatusActive {
			copied := *record
			return &copied, nil
		}
	}
	return nil, repository.ErrCodeNotFound
}

func (s *memStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeExistsAlways {
		return true, nil
	}
	_, ok := s.codes[code]
	return ok, nil
}

func (s *memStore) Create(_ context.Context, code *models.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("store unavailable")
	}
	if _, ok := s.codes[code.Code]; ok {
		return repository.ErrCodeExists
	}
	s.nextCodeID++
	code.ID = s.nextCodeID
	code.CreatedAt = time.Now()
	code.UpdatedAt = code.CreatedAt
	copied := *code
	s.codes[code.Code] = &copied
	s.createdCount++
	return nil
}

func (s *memStore) ListCodes(_ context.Context) ([]models.ReferralCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]models.ReferralCode, 0, len(s.codes))
	for _, record := range s.codes {
		codes = append(codes, *record)
	}
	return codes, nil
}

func (s *memStore) IncrementUsage(_ context.Context, codeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementLocked(codeID)
}

func (s *memStore) incrementLocked(codeID int64) error {
	for _, record := range s.codes {
		if record.ID == codeID {
			if record.TotalUses >= record.MaxUses {
				return repository.ErrMaxUsesReached
			}
			record.TotalUses++
			return nil
		}
	}
	return repository.ErrCodeNotFound
}

func (s *memStore) UpdateStatus(_ context.Context, codeID int64, status models.CodeStatus, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.codes {
		if record.ID == codeID {
			record.Status = status
			if notes != "" {
				record.Notes = &notes
			}
			return nil
		}
	}
	return repository.ErrCodeNotFound
}

func (s *memStore) Exists(_ context.Context, codeID int64, refereeEmail string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOnEachOp != nil {
		return false, s.failOnEachOp
	}
	for _, red := range s.redemptions {
		if red.ReferralCodeID == codeID && red.RefereeEmail == refereeEmail {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Record(_ context.Context, redemption *models.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, red := range s.redemptions {
		if red.ReferralCodeID == redemption.ReferralCodeID && red.RefereeEmail == redemption.RefereeEmail {
			return repository.ErrAlreadyRedeemed
		}
	}
	if err := s.incrementLocked(redemption.ReferralCodeID); err != nil {
		return err
	}
	s.redemptions = append(s.redemptions, *redemption)
	return nil
}

func (s *memStore) ListByCode(_ context.Context, codeID int64) ([]models.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Redemption
	for _, red := range s.redemptions {
		if red.ReferralCodeID == codeID {
			out = append(out, red)
		}
	}
	return out, nil
}

func (s *memStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.redemptions {
		if s.redemptions[i].ID == id {
			s.redemptions[i].BookingCompleted = true
			return nil
		}
	}
	return repository.ErrRedemptionNotFound
}

// seedCode inserts a code directly, bypassing the generator.
func (s *memStore) seedCode(code models.ReferralCode) *models.ReferralCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCodeID++
	code.ID = s.nextCodeID
	if code.Status == "" {
		code.Status = models.CodeStatusActive
	}
	s.codes[code.Code] = &code
	return &code
}

type memContacts struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]int64
}

func newMemContacts() *memContacts {
	return &memContacts{byMail: make(map[string]int64)}
}

func (c *memContacts) GetOrCreateByEmail(_ context.Context, email, _, _ string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byMail[email]; ok {
		return id, nil
	}
	c.nextID++
	c.byMail[email] = c.nextID
	return c.nextID, nil
}

type recordingNotifier struct {
	sent chan WelcomeEmail
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan WelcomeEmail, 8)}
}

func (n *recordingNotifier) SendReferralWelcome(email WelcomeEmail) error {
	n.sent <- email
	return n.err
}

func testReferralConfig() config.ReferralConfig {
	return config.ReferralConfig{
		CodePrefix:    "LUKE",
		MaxUses:       10,
		DiscountValue: decimal.NewFromInt(10),
		ExpiryMonths:  6,
	}
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func timePtr(t time.Time) *time.Time { return &t }
