package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-access/internal/api/http/handlers"
	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionHandler
	Emergency      *handlers.EmergencyHandler
	AuthMiddleware *auth.AuthMiddleware
}

// portalPolicies maps each credential domain to the policy guarding its session endpoint.
var portalPolicies = []struct {
	domain domain.Domain
	policy auth.Policy
}{
	{domain.DomainStaff, auth.PolicyStaffPortal},
	{domain.DomainPatient, auth.PolicyPatientPortal},
	{domain.DomainNurse, auth.PolicyNursePortal},
	{domain.DomainAdmin, auth.PolicyAnalytics},
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Get("/emergency/:token", cfg.Emergency.View)

	api := app.Group("/api")
	for _, p := range portalPolicies {
		prefix := "/" + string(p.domain)
		api.Get(prefix+"/session", cfg.AuthMiddleware.Protect(p.policy), cfg.Sessions.Current)
		api.Post(prefix+"/logout", cfg.Sessions.Logout(p.domain))
	}

	tokens := api.Group("/emergency-tokens", cfg.AuthMiddleware.Protect(auth.PolicyEmergencyTokens))
	tokens.Post("/", cfg.Emergency.Issue)
	tokens.Get("/:token", cfg.Emergency.Status)
	tokens.Delete("/:token", cfg.Emergency.Revoke)
}
