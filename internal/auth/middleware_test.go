package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/domain"
	"github.com/spec-kit/care-access/internal/observability"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

func newProtectedApp(t *testing.T, f *resolverFixture, metrics *observability.Metrics, policy Policy) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	mw := NewAuthMiddleware(f.resolver, zap.NewNop(), metrics, false)
	app.Get("/api/thing", mw.Protect(policy), func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrTeapot
		}
		return c.JSON(fiber.Map{
			"subject": p.Identity.SubjectID(),
			"scope":   p.Scope.Kind,
			"org":     p.Scope.OrganizationID,
		})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, creds StaticCredentials, accept string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/thing?x=1", nil)
	for name, value := range creds {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	body := map[string]any{}
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func TestProtect_AllowsAndScopes(t *testing.T) {
	f := newResolverFixture(t)
	metrics := observability.NewMetrics()
	app := newProtectedApp(t, f, metrics, PolicyStaffPortal)
	creds := f.login(t, domain.StaffIdentity{UserID: "u-1", OrganizationID: "org-1", StaffRole: domain.RoleRecepcionista})

	resp, body := doRequest(t, app, creds, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u-1", body["subject"])
	assert.Equal(t, "organization", body["scope"])
	assert.Equal(t, "org-1", body["org"])
	assert.Equal(t, int64(1), metrics.Snapshot().Decisions["staff_portal|ALLOW"])
}

func TestProtect_APIFailuresCarryStableCodes(t *testing.T) {
	f := newResolverFixture(t)
	metrics := observability.NewMetrics()
	app := newProtectedApp(t, f, metrics, PolicyEmergencyTokens)

	resp, body := doRequest(t, app, StaticCredentials{}, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperrors.CodeUnauthenticated, errorCode(body))

	reception := f.login(t, domain.StaffIdentity{UserID: "u-2", OrganizationID: "org-1", StaffRole: domain.RoleRecepcionista})
	resp, body = doRequest(t, app, reception, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeRoleNotPermitted, errorCode(body))

	orphan := f.login(t, domain.StaffIdentity{UserID: "u-3", StaffRole: domain.RoleMedico})
	resp, body = doRequest(t, app, orphan, fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperrors.CodeTenantIntegrity, errorCode(body))

	snap := metrics.Snapshot().Decisions
	assert.Equal(t, int64(1), snap["emergency_tokens|NOT_AUTHENTICATED"])
	assert.Equal(t, int64(1), snap["emergency_tokens|ROLE_NOT_PERMITTED"])
	assert.Equal(t, int64(1), snap["emergency_tokens|TENANT_INTEGRITY"])
}

func TestProtect_PageRequestsRedirectToLogin(t *testing.T) {
	f := newResolverFixture(t)
	app := newProtectedApp(t, f, nil, PolicyPatientPortal)

	resp, _ := doRequest(t, app, StaticCredentials{}, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/paciente/login?next=%2Fapi%2Fthing%3Fx%3D1", resp.Header.Get("Location"))
}

func TestProtect_SecondDomainResolves(t *testing.T) {
	f := newResolverFixture(t)
	app := newProtectedApp(t, f, nil, PolicyEmergencyTokens)
	creds := f.login(t, domain.NurseIdentity{UserID: "n-1", NurseType: domain.NurseIndependent})

	resp, body := doRequest(t, app, creds, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "independent", body["scope"])
}

func TestFiberCredentials_SetAndClearCookie(t *testing.T) {
	f := newResolverFixture(t)
	mw := NewAuthMiddleware(f.resolver, nil, nil, true)
	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		_, err := f.sessions.Open(context.Background(), mw.Credentials(c), domain.AdminIdentity{AdminID: "a-1"})
		return err
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return f.sessions.Close(context.Background(), mw.Credentials(c), domain.DomainAdmin)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "admin_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: cookies[0].Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	cleared := resp.Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)

	_, ok := f.resolver.Resolve(context.Background(), StaticCredentials{"admin_session": cookies[0].Value}, domain.DomainAdmin)
	assert.False(t, ok)
}
