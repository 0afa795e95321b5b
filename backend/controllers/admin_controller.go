package controllers

import (
	"errors"

	"lms/backend/middleware"
	"lms/backend/models"
	"lms/backend/repository"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminController struct {
	Directory *repository.Directory
	Activity  *repository.Activity
	Log       *zap.Logger
}

func NewAdminController(dir *repository.Directory, activity *repository.Activity, log *zap.Logger) *AdminController {
	return &AdminController{Directory: dir, Activity: activity, Log: log.With(zap.String("controller", "admin"))}
}

type GrantRoleRequest struct {
	Role string `json:"role" example:"instructor" enums:"student,instructor,admin"`
}

// GrantRole godoc
// @Summary Grant a role to a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param role body GrantRoleRequest true "Role"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/users/{id}/roles [post]
func (ac *AdminController) GrantRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}
	var req GrantRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx := c.UserContext()
	err = ac.Directory.GrantRole(ctx, userID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(c, "User not found")
	}
	if err != nil {
		ac.Log.Error("grant role", zap.String("user_id", userID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Could not grant role")
	}

	actor := middleware.Principal(c).ID
	if err := ac.Activity.Record(ctx, actor, "role.granted", "user", userID.String(), map[string]any{"role": role.String()}); err != nil {
		ac.Log.Warn("activity not recorded", zap.Error(err))
	}

	roles, err := ac.Directory.Roles(ctx, userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not load roles")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user_id": userID, "roles": roles})
}

// GetRecentActivity returns the newest activity entries, ?limit= up to 200.
func (ac *AdminController) GetRecentActivity(c *fiber.Ctx) error {
	entries, err := ac.Activity.Recent(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		ac.Log.Error("recent activity", zap.Error(err))
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, entries)
}
