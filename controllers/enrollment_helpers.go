package controllers

import (
	"errors"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"gorm.io/gorm"
)

func enrollmentPeriod() time.Duration {
	if deps.Config != nil && deps.Config.EnrollmentPeriod > 0 {
		return deps.Config.EnrollmentPeriod
	}
	return 365 * 24 * time.Hour
}

// activateEnrollment activates the user's enrollment for tier. An existing enrollment id
// is reused (and extended); otherwise a new enrollment is created.
func activateEnrollment(tx *gorm.DB, userID uint, tier string, enrollmentID *uint, now time.Time) (*models.Enrollment, error) {
	expires := now.Add(enrollmentPeriod())

	if enrollmentID != nil && *enrollmentID != 0 {
		var enrollment models.Enrollment
		err := tx.Where("id = ? AND user_id = ?", *enrollmentID, userID).First(&enrollment).Error
		if err == nil {
			if enrollment.IsActive && enrollment.ExpiresAt != nil && enrollment.ExpiresAt.After(now) {
				expires = enrollment.ExpiresAt.Add(enrollmentPeriod())
			}
			if err := tx.Model(&enrollment).Updates(map[string]interface{}{
				"tier":           tier,
				"is_active":      true,
				"activated_at":   now,
				"expires_at":     expires,
				"deactivated_at": nil,
			}).Error; err != nil {
				return nil, utils.WrapError(err, "activate enrollment")
			}
			utils.LogInfo("Enrollment %d activated for user %d (tier %s)", enrollment.ID, userID, tier)
			return &enrollment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.WrapError(err, "load enrollment")
		}
		utils.LogError("Enrollment %d not found for user %d, creating a new one", *enrollmentID, userID)
	}

	enrollment := models.Enrollment{
		UserID:      userID,
		Tier:        tier,
		IsActive:    true,
		ActivatedAt: &now,
		ExpiresAt:   &expires,
	}
	if err := tx.Create(&enrollment).Error; err != nil {
		return nil, utils.WrapError(err, "create enrollment")
	}
	utils.LogInfo("Enrollment %d created for user %d (tier %s)", enrollment.ID, userID, tier)
	return &enrollment, nil
}

// upgradeEnrollment moves an active enrollment to a new tier, keeping its expiry
func upgradeEnrollment(tx *gorm.DB, enrollmentID, userID uint, toTier string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := tx.Where("id = ? AND user_id = ?", enrollmentID, userID).First(&enrollment).Error; err != nil {
		return nil, utils.WrapError(err, "load enrollment")
	}
	if !enrollment.IsActive {
		return nil, utils.ConflictError("Enrollment is not active", nil)
	}
	if err := tx.Model(&enrollment).Update("tier", toTier).Error; err != nil {
		return nil, utils.WrapError(err, "upgrade enrollment")
	}
	return &enrollment, nil
}

func deactivateEnrollment(tx *gorm.DB, enrollmentID uint, now time.Time) error {
	return tx.Model(&models.Enrollment{}).Where("id = ?", enrollmentID).Updates(map[string]interface{}{
		"is_active":      false,
		"deactivated_at": now,
	}).Error
}
