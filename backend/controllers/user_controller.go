package controllers

import (
	"errors"

	"lms/backend/middleware"
	"lms/backend/repository"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserController struct {
	Directory *repository.Directory
	Log       *zap.Logger
}

func NewUserController(dir *repository.Directory, log *zap.Logger) *UserController {
	return &UserController{Directory: dir, Log: log.With(zap.String("controller", "user"))}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the authenticated user's profile and roles
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	st := middleware.Session(c).State()
	if st.Profile == nil {
		profile, err := uc.Directory.Profile(c.UserContext(), st.Principal.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NotFound(c, "Profile not found")
		}
		if err != nil {
			return utils.InternalServerError(c, "Could not load profile")
		}
		st.Profile = profile
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":          st.Principal.ID,
		"email":       st.Principal.Email,
		"full_name":   st.Profile.FullName,
		"avatar_url":  st.Profile.AvatarURL,
		"roll_number": st.Profile.RollNumber,
		"roles":       st.Roles,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Tags users
// @Accept json
// @Produce json
// @Param profile body repository.ProfileUpdate true "Fields to change"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var req repository.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	principal := middleware.Principal(c)
	profile, err := uc.Directory.UpdateProfile(c.UserContext(), principal.ID, req)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound(c, "Profile not found")
	}
	if err != nil {
		uc.Log.Error("profile update failed", zap.String("user_id", principal.ID.String()), zap.Error(err))
		return utils.InternalServerError(c, "Could not update profile")
	}
	return utils.Success(c, fiber.StatusOK, profile)
}
