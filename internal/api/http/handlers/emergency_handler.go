package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-access/internal/api/dto"
	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/emergency"
	"github.com/spec-kit/care-access/internal/events"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

// EmergencyHandler serves the public emergency view and the staff token endpoints.
type EmergencyHandler struct {
	service *emergency.Service
}

// NewEmergencyHandler constructs handler.
func NewEmergencyHandler(service *emergency.Service) *EmergencyHandler {
	return &EmergencyHandler{service: service}
}

// View handles GET /emergency/:token. Unknown, expired and revoked tokens
// all produce the same 404.
func (h *EmergencyHandler) View(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderReferrerPolicy, "no-referrer")

	view, v, err := h.service.View(c.UserContext(), c.Params("token"), events.Actor{RemoteIP: c.IP()})
	if err != nil {
		return err
	}
	if !v.Valid() {
		return apperrors.NewNotFound()
	}
	return c.JSON(fiber.Map{"data": view})
}

// Issue handles POST /api/emergency-tokens.
func (h *EmergencyHandler) Issue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}

	var req dto.IssueEmergencyTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TTLMinutes < 0 {
		return apperrors.NewValidationError("ttl_minutes must not be negative", nil)
	}

	token, err := h.service.Issue(c.UserContext(), emergency.IssueRequest{
		PatientID: req.PatientID,
		TTL:       ttlFromMinutes(req.TTLMinutes),
		Fields:    req.Fields,
	}, principal.Identity)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.IssuedEmergencyTokenResponse{
			Token:     token.Token,
			URL:       "/emergency/" + token.Token,
			PatientID: token.PatientID,
			Scope:     token.Scope,
			ExpiresAt: token.ExpiresAt,
		},
	})
}

// Status handles GET /api/emergency-tokens/:token.
func (h *EmergencyHandler) Status(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	token, err := h.service.Inspect(c.UserContext(), c.Params("token"), principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmergencyTokenStatus(token, h.service.Status(token))})
}

// Revoke handles DELETE /api/emergency-tokens/:token.
func (h *EmergencyHandler) Revoke(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.service.RevokeAs(c.UserContext(), c.Params("token"), principal.Identity); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ttlFromMinutes saturates instead of overflowing; the service clamps to its maximum anyway.
func ttlFromMinutes(minutes int) time.Duration {
	if int64(minutes) > math.MaxInt64/int64(time.Minute) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(minutes) * time.Minute
}
