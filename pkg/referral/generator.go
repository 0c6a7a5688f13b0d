package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/config"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

const (
	suffixLength = 4
	maxAttempts  = 10

	suffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator issues referral codes. Issuance is idempotent per referrer email:
// while a referrer holds an active code, repeated calls return that code.
type Generator struct {
	registry Registry
	cfg      config.ReferralConfig
}

func NewGenerator(registry Registry, cfg config.ReferralConfig) *Generator {
	return &Generator{registry: registry, cfg: cfg}
}

// GenerateCode returns the referrer's active code, issuing a new one if none
// exists. A code is never returned unless it has been persisted.
func (g *Generator) GenerateCode(ctx context.Context, name, email, phone string) (*models.ReferralCode, error) {
	email = NormalizeEmail(email)

	existing, err := g.registry.FindActiveByReferrerEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrCodeNotFound) {
		return nil, fmt.Errorf("failed to look up existing code: %w", err)
	}

	code, err := g.uniqueCode(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.AddDate(0, g.cfg.ExpiryMonths, 0)
	record := &models.ReferralCode{
		Code:          code,
		ReferrerName:  name,
		ReferrerEmail: email,
		Status:        models.CodeStatusActive,
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: g.cfg.DiscountValue,
		TotalUses:     0,
		MaxUses:       g.cfg.MaxUses,
		ExpiresAt:     &expiresAt,
	}
	if phone != "" {
		record.ReferrerPhone = &phone
	}

	if err := g.registry.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			// Lost a race on the code string itself; the timestamp token
			// cannot collide, so one more write settles it.
			record.Code = g.timestampCode(name)
			if err := g.registry.Create(ctx, record); err != nil {
				return nil, fmt.Errorf("failed to persist referral code: %w", err)
			}
			return record, nil
		}
		return nil, fmt.Errorf("failed to persist referral code: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"code":           record.Code,
		"referrer_email": email,
	}).Info("Issued new referral code")

	return record, nil
}

// uniqueCode synthesizes a collision-checked candidate token. After
// maxAttempts collisions it falls back to a timestamp-suffixed token that
// needs no further existence check.
func (g *Generator) uniqueCode(ctx context.Context, name string) (string, error) {
	fragment := firstNameFragment(name)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix, err := randomSuffix(suffixLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code suffix: %w", err)
		}

		candidate := fmt.Sprintf("%s-%s-%s", g.cfg.CodePrefix, fragment, suffix)
		exists, err := g.registry.CodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return g.timestampCode(name), nil
}

func (g *Generator) timestampCode(name string) string {
	return fmt.Sprintf("%s-%s-%d", g.cfg.CodePrefix, firstNameFragment(name), time.Now().UnixNano())
}

func randomSuffix(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i, b := range raw {
		raw[i] = suffixCharset[int(b)%len(suffixCharset)]
	}
	return string(raw), nil
}
