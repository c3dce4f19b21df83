package auth

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/domain"
	"github.com/spec-kit/care-access/internal/observability"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated, authorized and scoped caller.
type Principal struct {
	Identity domain.Identity
	Scope    TenantScope
	Policy   string
}

// AuthMiddleware resolves, authorizes and scopes callers of protected routes.
type AuthMiddleware struct {
	resolver     *SessionResolver
	logger       *zap.Logger
	metrics      *observability.Metrics
	cookieSecure bool
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *SessionResolver, logger *zap.Logger, metrics *observability.Metrics, cookieSecure bool) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{resolver: resolver, logger: logger, metrics: metrics, cookieSecure: cookieSecure}
}

// Protect enforces policy on the route. Page requests that fail are redirected
// to the login entry point of the policy's first domain; API requests get a
// structured error with a stable code.
func (m *AuthMiddleware) Protect(policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := m.resolver.ResolveAny(c.UserContext(), m.Credentials(c), policy.Domains...)

		decision := Authorize(identity, policy.Allowed)
		if !decision.Allowed {
			m.metrics.RecordDecision(policy.Name, string(decision.Reason))
			return m.reject(c, policy, denyError(decision.Reason))
		}

		scope, err := Scope(identity)
		if err != nil {
			var integrity *TenantIntegrityError
			if errors.As(err, &integrity) {
				m.logger.Error("tenant integrity violation",
					zap.String("policy", policy.Name),
					zap.String("domain", string(integrity.Domain)),
					zap.String("subject_id", integrity.SubjectID),
					zap.String("reason", integrity.Reason))
			}
			m.metrics.RecordDecision(policy.Name, apperrors.CodeTenantIntegrity)
			return m.reject(c, policy, err)
		}

		m.metrics.RecordDecision(policy.Name, "ALLOW")
		c.Locals(principalKey, &Principal{Identity: identity, Scope: scope, Policy: policy.Name})
		return c.Next()
	}
}

// Credentials exposes the request's cookies and headers as a CredentialStore.
func (m *AuthMiddleware) Credentials(c *fiber.Ctx) CredentialStore {
	return fiberCredentials{c: c, secure: m.cookieSecure}
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, policy Policy, err error) error {
	if !wantsPage(c) || len(policy.Domains) == 0 {
		return err
	}
	names, _ := CredentialsFor(policy.Domains[0])
	return c.Redirect(names.LoginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusSeeOther)
}

func wantsPage(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}

func denyError(reason DenyReason) error {
	if reason == DenyRoleNotPermitted {
		return apperrors.NewRoleNotPermitted()
	}
	return apperrors.NewUnauthenticated()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

type fiberCredentials struct {
	c      *fiber.Ctx
	secure bool
}

func (f fiberCredentials) Get(name string) (string, bool) {
	if v := f.c.Cookies(name); v != "" {
		return v, true
	}
	if v := f.c.Get(name); v != "" {
		return v, true
	}
	return "", false
}

func (f fiberCredentials) Set(name, value string, maxAge time.Duration) {
	if value == "" || maxAge <= 0 {
		f.c.ClearCookie(name)
		return
	}
	f.c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		Secure:   f.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// StaticCredentials is a CredentialStore over a plain map, for tooling and tests.
type StaticCredentials map[string]string

func (s StaticCredentials) Get(name string) (string, bool) {
	v, ok := s[name]
	return v, ok
}

func (s StaticCredentials) Set(name, value string, maxAge time.Duration) {
	if value == "" || maxAge <= 0 {
		delete(s, name)
		return
	}
	s[name] = value
}
