package apiv1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/yhzhou/smartcal/server/auth"
	"github.com/yhzhou/smartcal/store"
)

type signUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   int32  `json:"userId"`
	Username string `json:"username"`
}

// SignUp registers a new user and signs them in.
func (s *APIV1Service) SignUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &req.Username})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find user").SetInternal(err)
	}
	if existing != nil {
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password").SetInternal(err)
	}

	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     req.Username,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user").SetInternal(err)
	}
	slog.Info("user signed up", "user_id", user.ID, "username", user.Username)

	return s.issueToken(c, user)
}

// SignIn verifies credentials and issues an access token.
func (s *APIV1Service) SignIn(c echo.Context) error {
	ctx := c.Request().Context()

	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
	}

	user, err := s.Store.GetUser(ctx, &store.FindUser{Username: &req.Username})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find user").SetInternal(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	return s.issueToken(c, user)
}

func (s *APIV1Service) issueToken(c echo.Context, user *store.User) error {
	expirationTime := time.Now().Add(auth.AccessTokenDuration)
	token, err := auth.GenerateAccessToken(user.Username, user.ID, expirationTime, []byte(s.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate access token").SetInternal(err)
	}

	return c.JSON(http.StatusOK, &authResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}
