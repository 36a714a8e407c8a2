// Package apiv1 exposes the JSON HTTP API: auth, chat, calendar views and
// usage stats.
package apiv1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yhzhou/smartcal/internal/profile"
	"github.com/yhzhou/smartcal/server/auth"
	"github.com/yhzhou/smartcal/server/service/assistant"
	"github.com/yhzhou/smartcal/store"
)

const userIDContextKey = "user-id"

// APIV1Service wires the HTTP handlers to the store and the assistant
// engine.
type APIV1Service struct {
	Secret    string
	Profile   *profile.Profile
	Store     *store.Store
	Assistant *assistant.Assistant
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, assistant *assistant.Assistant) *APIV1Service {
	return &APIV1Service{
		Secret:    secret,
		Profile:   profile,
		Store:     store,
		Assistant: assistant,
	}
}

// Register mounts all v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	apiV1 := e.Group("/api/v1")

	apiV1.POST("/auth/signup", s.SignUp)
	apiV1.POST("/auth/signin", s.SignIn)

	protected := apiV1.Group("", s.authMiddleware)
	protected.POST("/chat", s.Chat)
	protected.GET("/chat/history", s.GetChatHistory)
	protected.POST("/chat/clear", s.ClearChatHistory)
	protected.GET("/calendar/:year/:month", s.GetCalendarMonth)
	protected.GET("/events/day/:year/:month/:day", s.GetDayEvents)
	protected.GET("/stats", s.GetStats)
}

// authMiddleware authenticates the bearer token and stashes the user id in
// the request context.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		userID, err := auth.Authenticate(token, []byte(s.Secret))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized").SetInternal(err)
		}
		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}

func currentUserID(c echo.Context) int32 {
	id, _ := c.Get(userIDContextKey).(int32)
	return id
}
