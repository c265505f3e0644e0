package controllers

import (
	"fmt"
	"strings"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
)

// GET /v1/admin/users
// Supports search (email, name), role filter and sort_by=email|name|created_at with order=asc|desc.
func GetUsers(c *gin.Context) {
	utils.LogInfo("GetUsers called")

	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	order := strings.ToLower(c.DefaultQuery("order", "desc"))
	if order != "asc" && order != "desc" {
		utils.BadRequest(c, "Invalid order", "order must be asc or desc")
		return
	}

	query := config.DB.Model(&models.User{})
	if search != "" {
		term := "%" + search + "%"
		utils.LogDebug("Applying user search with term: %s", search)
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", term, term, term)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	switch c.DefaultQuery("sort_by", "created_at") {
	case "email":
		query = query.Order(fmt.Sprintf("email %s", order))
	case "name":
		query = query.Order(fmt.Sprintf("first_name %s, last_name %s", order, order))
	default:
		query = query.Order(fmt.Sprintf("created_at %s", order))
	}

	var users []models.User
	paginate(c, query, &users, "Users retrieved successfully")
}

// PATCH /v1/admin/users/:id/block toggles the block flag
func BlockUser(c *gin.Context) {
	utils.LogInfo("BlockUser called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == admin.ID {
		utils.BadRequest(c, "You cannot block your own account", nil)
		return
	}

	var user models.User
	if err := config.DB.First(&user, id).Error; err != nil {
		utils.LogError("User not found: %v", err)
		utils.NotFound(c, "User not found")
		return
	}

	blocked := !user.IsBlocked
	action := "blocked"
	if !blocked {
		action = "unblocked"
	}
	if err := config.DB.Model(&user).Update("is_blocked", blocked).Error; err != nil {
		utils.LogError("Failed to update user block status: %v", err)
		utils.InternalServerError(c, "Failed to update user block status", nil)
		return
	}

	utils.LogSecurity("Admin %d %s user %d", admin.ID, action, user.ID)
	utils.Success(c, fmt.Sprintf("User %s successfully", action), gin.H{
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"username":   user.Username,
			"is_blocked": blocked,
		},
	})
}
