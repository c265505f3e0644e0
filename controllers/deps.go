package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/jobs"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the collaborators shared by all handlers
type Dependencies struct {
	Config    *config.Config
	Engine    *commission.Engine
	Gateway   *payhere.Client
	Jobs      *jobs.Runner
	Notifier  notifications.Notifier
	Publisher events.Publisher
	Mailer    utils.Mailer
}

var deps Dependencies

// Init wires the handlers. It must be called before the router serves requests.
func Init(d Dependencies) {
	if d.Notifier == nil {
		d.Notifier = notifications.NopNotifier{}
	}
	if d.Publisher == nil {
		d.Publisher = events.LogPublisher{}
	}
	deps = d
}

func getUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		utils.Unauthorized(c, "User not found")
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	if !ok {
		utils.LogError("Invalid user type in context")
		utils.InternalServerError(c, "Invalid user type", nil)
		return models.User{}, false
	}
	return user, true
}

func getCreator(c *gin.Context) (models.CreatorProfile, bool) {
	val, exists := c.Get("creator")
	if !exists {
		utils.LogError("Creator not found in context")
		utils.Forbidden(c, "Creator access required")
		return models.CreatorProfile{}, false
	}
	creator, ok := val.(models.CreatorProfile)
	if !ok {
		utils.InternalServerError(c, "Invalid creator type", nil)
		return models.CreatorProfile{}, false
	}
	return creator, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.LogError("Invalid %s parameter: %s", name, c.Param(name))
		utils.BadRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// currentPaymentMode returns the stored payment mode, falling back to the configured default
func currentPaymentMode(db *gorm.DB) string {
	var setting models.AppSetting
	err := db.Where("key = ?", models.SettingPaymentMode).First(&setting).Error
	if err == nil && payhere.ValidMode(setting.Value) {
		return setting.Value
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogError("Failed to read payment mode setting: %v", err)
	}
	if deps.Config != nil && payhere.ValidMode(deps.Config.DefaultMode) {
		return deps.Config.DefaultMode
	}
	return payhere.ModeSandbox
}

// finalizeError maps engine errors onto API errors
func finalizeError(err error) error {
	switch {
	case errors.Is(err, commission.ErrInvalidOrderID),
		errors.Is(err, commission.ErrInvalidUser),
		errors.Is(err, commission.ErrInvalidAmount):
		return utils.BadRequestError("Invalid payment details", err)
	}
	return err
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}

// paginate counts and loads one page of query into dest and writes the paginated response
func paginate(c *gin.Context, query *gorm.DB, dest interface{}, message string) {
	pagination := utils.NewPagination(c)
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.LogError("Failed to count %s: %v", message, err)
		utils.InternalServerError(c, "Failed to load records", nil)
		return
	}
	pagination.SetTotal(total)
	if err := pagination.Apply(query.Session(&gorm.Session{})).Find(dest).Error; err != nil {
		utils.LogError("Failed to load %s: %v", message, err)
		utils.InternalServerError(c, "Failed to load records", nil)
		return
	}
	utils.SendPaginatedResponse(c, message, dest, pagination)
}
