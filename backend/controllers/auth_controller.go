package controllers

import (
	"errors"

	"lms/backend/guard"
	"lms/backend/identity"
	"lms/backend/middleware"
	"lms/backend/models"
	"lms/backend/session"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthController struct {
	Provider  *identity.Local
	Directory session.Directory
	Log       *zap.Logger
}

func NewAuthController(provider *identity.Local, dir session.Directory, log *zap.Logger) *AuthController {
	return &AuthController{Provider: provider, Directory: dir, Log: log.With(zap.String("controller", "auth"))}
}

type RegisterRequest struct {
	Email    string `json:"email" example:"student@example.com"`
	Password string `json:"password" example:"secret123" minLength:"6"`
	FullName string `json:"full_name" example:"Ada Lovelace"`
	Role     string `json:"role" example:"student" enums:"student,instructor"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates an account with a profile and the requested role, and signs it in
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	role := models.RoleStudent
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			return utils.BadRequest(c, err.Error())
		}
		role = parsed
	}

	s := session.New(ac.Provider.WithToken(""), ac.Directory, ac.Log)
	defer s.Close()

	if err := s.SignUp(c.UserContext(), req.Email, req.Password, req.FullName, role); err != nil {
		return ac.authFailure(c, err)
	}
	return ac.respondSession(c, s, fiber.StatusCreated)
}

// Login godoc
// @Summary User login
// @Description Authenticates with email and password and returns a token, the roles and the landing path
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	s := session.New(ac.Provider.WithToken(""), ac.Directory, ac.Log)
	defer s.Close()

	if err := s.SignIn(c.UserContext(), req.Email, req.Password); err != nil {
		return ac.authFailure(c, err)
	}
	return ac.respondSession(c, s, fiber.StatusOK)
}

// Session returns the caller's current session.
func (ac *AuthController) Session(c *fiber.Ctx) error {
	st := middleware.Session(c).State()
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":     st.Principal,
		"profile":  st.Profile,
		"roles":    st.Roles,
		"redirect": guard.HomeFor(st.Roles),
	})
}

// Logout revokes the presented token.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	location := middleware.Session(c).SignOut(c.UserContext())
	return utils.Success(c, fiber.StatusOK, fiber.Map{"redirect": location})
}

// respondSession waits for the roles of a fresh sign-in and reports them.
func (ac *AuthController) respondSession(c *fiber.Ctx, s *session.Session, status int) error {
	if err := s.Settled(c.UserContext()); err != nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, err)
	}
	st := s.State()
	return utils.Success(c, status, fiber.Map{
		"token":    st.AccessToken,
		"user":     st.Principal,
		"profile":  st.Profile,
		"roles":    st.Roles,
		"redirect": guard.HomeFor(st.Roles),
	})
}

func (ac *AuthController) authFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrRoleNotRequestable), errors.Is(err, identity.ErrInvalidSignUp):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		return utils.Error(c, fiber.StatusConflict, err)
	}

	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		return utils.InternalServerError(c, err.Error())
	}
	switch authErr.Kind {
	case session.InvalidCredentials:
		return utils.Unauthorized(c, "Invalid credentials")
	case session.NetworkError:
		ac.Log.Warn("identity provider unreachable", zap.Error(err))
		return utils.Error(c, fiber.StatusServiceUnavailable, err)
	}
	ac.Log.Error("authentication failed", zap.Error(err))
	return utils.InternalServerError(c, err.Error())
}
