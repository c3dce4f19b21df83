package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-access/internal/api/dto"
	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/domain"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

// SessionHandler exposes "who am I" and logout for every credential domain.
type SessionHandler struct {
	sessions    *auth.Sessions
	credentials func(*fiber.Ctx) auth.CredentialStore
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *auth.Sessions, mw *auth.AuthMiddleware) *SessionHandler {
	return &SessionHandler{sessions: sessions, credentials: mw.Credentials}
}

// Current handles GET /api/{domain}/session.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(principal)})
}

// Logout handles POST /api/{domain}/logout. It succeeds without a session.
func (h *SessionHandler) Logout(d domain.Domain) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.sessions.Close(c.UserContext(), h.credentials(c), d); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}
}
