package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/referral"
	"github.com/antonionng/luke-robert-hair-sub001/pkg/repository"
)

type ReferralHandler struct {
	generator   *referral.Generator
	validator   *referral.Validator
	recorder    *referral.Recorder
	aggregator  *referral.Aggregator
	registry    referral.Registry
	siteBaseURL string
}

func NewReferralHandler(
	generator *referral.Generator,
	validator *referral.Validator,
	recorder *referral.Recorder,
	aggregator *referral.Aggregator,
	registry referral.Registry,
	siteBaseURL string,
) *ReferralHandler {
	return &ReferralHandler{
		generator:   generator,
		validator:   validator,
		recorder:    recorder,
		aggregator:  aggregator,
		registry:    registry,
		siteBaseURL: siteBaseURL,
	}
}

func (h *ReferralHandler) Generate(c *gin.Context) {
	var req models.GenerateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("Generate: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	code, err := h.generator.GenerateCode(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		logrus.WithField("referrer_email", req.Email).WithError(err).Error("Generate: Failed to issue referral code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate referral code"})
		return
	}

	formatted := code.Discount().Formatted()
	c.JSON(http.StatusCreated, models.GenerateCodeResponse{
		Code:     code.Code,
		ShareURL: fmt.Sprintf("%s/refer?code=%s", h.siteBaseURL, url.QueryEscape(code.Code)),
		ShareText: fmt.Sprintf(
			"Use my code %s for %s your first visit to Luke Robert Hair!",
			code.Code, formatted,
		),
	})
}

// Validate always answers 200 for a well-formed request: a failed check is a
// normal outcome carried in the body, not a server error.
func (h *ReferralHandler) Validate(c *gin.Context) {
	var req models.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("Validate: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	admission, err := h.validator.Validate(c.Request.Context(), req.Code, req.Email)
	if err != nil {
		if rej, ok := referral.AsRejection(err); ok {
			logrus.WithFields(logrus.Fields{
				"code":   req.Code,
				"reason": rej.Reason,
			}).Warn("Validate: Code rejected")
			c.JSON(http.StatusOK, models.ValidateCodeResponse{
				Valid:   false,
				Message: rej.Message(),
			})
			return
		}
		logrus.WithField("code", req.Code).WithError(err).Error("Validate: Failed to validate code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate referral code"})
		return
	}

	terms := admission.Terms()
	c.JSON(http.StatusOK, models.ValidateCodeResponse{
		Valid:        true,
		Discount:     &terms,
		Message:      fmt.Sprintf("Code accepted: %s your first visit.", terms.Formatted),
		ReferralCode: admission.Code.Code,
	})
}

func (h *ReferralHandler) Apply(c *gin.Context) {
	var req models.ApplyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("Apply: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
		return
	}

	redemption, err := h.recorder.Redeem(c.Request.Context(), req.Code, referral.Referee{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	}, req.BookingID)
	if err != nil {
		if rej, ok := referral.AsRejection(err); ok {
			logrus.WithFields(logrus.Fields{
				"code":   req.Code,
				"reason": rej.Reason,
			}).Warn("Apply: Redemption rejected")
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   string(rej.Reason),
				"message": rej.Message(),
			})
			return
		}
		logrus.WithField("code", req.Code).WithError(err).Error("Apply: Failed to record redemption")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to apply referral code"})
		return
	}

	// Percentage discounts stay unresolved here; the amount is settled when a
	// booking price is known.
	var discountType models.DiscountType
	if redemption.RefereeDiscountAmount != nil {
		discountType = models.DiscountTypeFixed
	} else {
		discountType = models.DiscountTypePercentage
	}
	c.JSON(http.StatusCreated, models.ApplyCodeResponse{
		Success:      true,
		RedemptionID: redemption.ID.String(),
		Discount: models.AppliedDiscount{
			Amount: redemption.RefereeDiscountAmount,
			Type:   discountType,
		},
	})
}

func (h *ReferralHandler) Stats(c *gin.Context) {
	code := c.Query("code")
	email := c.Query("email")
	if code == "" && email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Provide either code or email"})
		return
	}

	var (
		stats  *models.CodeStats
		recent []models.RecentRedemption
		err    error
	)
	if code != "" {
		stats, recent, err = h.aggregator.StatsForCode(c.Request.Context(), code)
	} else {
		stats, recent, err = h.aggregator.StatsForReferrer(c.Request.Context(), email)
	}
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Referral code not found"})
			return
		}
		logrus.WithFields(logrus.Fields{"code": code, "email": email}).WithError(err).Error("Stats: Failed to aggregate")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load referral stats"})
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Success:           true,
		Stats:             *stats,
		RecentRedemptions: recent,
	})
}

func (h *ReferralHandler) Leaderboard(c *gin.Context) {
	board, err := h.aggregator.Leaderboard(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Leaderboard: Failed to aggregate")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": board})
}

// MarkCompleted is the hook the booking-completion workflow calls when a
// referee's booking actually happens.
func (h *ReferralHandler) MarkCompleted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid redemption id"})
		return
	}

	if err := h.recorder.MarkBookingCompleted(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrRedemptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Redemption not found"})
			return
		}
		logrus.WithField("redemption_id", id).WithError(err).Error("MarkCompleted: Failed to update redemption")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to mark redemption completed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ReferralHandler) UpdateStatus(c *gin.Context) {
	codeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid code id"})
		return
	}

	var req models.UpdateCodeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("UpdateStatus: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.registry.UpdateStatus(c.Request.Context(), codeID, req.Status, req.Notes); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Referral code not found"})
			return
		}
		logrus.WithField("code_id", codeID).WithError(err).Error("UpdateStatus: Failed to update code")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update referral code"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"code_id":  codeID,
		"status":   req.Status,
		"operator": c.GetString("operator"),
	}).Info("Referral code status updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
}
