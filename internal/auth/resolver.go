package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/domain"
)

// Resolver turns one domain's credential into an identity.
// A false result means Unauthenticated; resolvers never return errors.
type Resolver interface {
	Domain() domain.Domain
	Resolve(ctx context.Context, creds CredentialStore) (domain.Identity, bool)
}

// ResolverDeps are the handles every session-backed resolver shares.
type ResolverDeps struct {
	Codec  *SessionCodec
	Store  SessionStore
	Logger *zap.Logger
	Now    func() time.Time
}

type sessionResolver struct {
	dom    domain.Domain
	names  DomainCredentials
	deps   ResolverDeps
	accept func(domain.Identity) bool
}

// NewStaffResolver resolves organization staff sessions.
func NewStaffResolver(deps ResolverDeps) Resolver {
	return newSessionResolver(domain.DomainStaff, deps, func(id domain.Identity) bool {
		_, ok := id.(domain.StaffIdentity)
		return ok
	})
}

// NewPatientResolver resolves patient portal sessions.
func NewPatientResolver(deps ResolverDeps) Resolver {
	return newSessionResolver(domain.DomainPatient, deps, func(id domain.Identity) bool {
		_, ok := id.(domain.PatientIdentity)
		return ok
	})
}

// NewNurseResolver resolves nurse portal sessions.
func NewNurseResolver(deps ResolverDeps) Resolver {
	return newSessionResolver(domain.DomainNurse, deps, func(id domain.Identity) bool {
		_, ok := id.(domain.NurseIdentity)
		return ok
	})
}

// NewAdminResolver resolves analytics-admin sessions.
func NewAdminResolver(deps ResolverDeps) Resolver {
	return newSessionResolver(domain.DomainAdmin, deps, func(id domain.Identity) bool {
		_, ok := id.(domain.AdminIdentity)
		return ok
	})
}

func newSessionResolver(d domain.Domain, deps ResolverDeps, accept func(domain.Identity) bool) *sessionResolver {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	names, _ := CredentialsFor(d)
	return &sessionResolver{dom: d, names: names, deps: deps, accept: accept}
}

func (r *sessionResolver) Domain() domain.Domain { return r.dom }

func (r *sessionResolver) Resolve(ctx context.Context, creds CredentialStore) (domain.Identity, bool) {
	log := r.deps.Logger.With(zap.String("domain", string(r.dom)))

	raw := readCredential(creds, r.names)
	if raw == "" {
		return nil, false
	}
	if r.deps.Codec == nil || r.deps.Store == nil {
		log.Error("session resolver misconfigured")
		return nil, false
	}

	claims, err := r.deps.Codec.Parse(raw)
	if err != nil {
		log.Debug("rejected session credential", zap.Error(err))
		return nil, false
	}
	if claims.Domain != r.dom {
		log.Warn("session credential presented to wrong domain", zap.String("credential_domain", string(claims.Domain)))
		return nil, false
	}

	sess, err := r.deps.Store.Get(ctx, claims.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionNotFound):
		return nil, false
	case errors.Is(err, domain.ErrMalformedSession):
		log.Warn("corrupt session record", zap.Error(err))
		return nil, false
	case ctx.Err() != nil:
		return nil, false
	default:
		log.Error("session store unavailable", zap.Error(err))
		return nil, false
	}

	if sess.Domain != r.dom || sess.Identity == nil || !r.accept(sess.Identity) {
		log.Warn("session bound to another identity kind", zap.String("session_domain", string(sess.Domain)))
		return nil, false
	}
	if sess.Expired(r.deps.Now()) {
		return nil, false
	}
	return sess.Identity, true
}

// SessionResolver dispatches to the resolver registered for a domain.
type SessionResolver struct {
	resolvers map[domain.Domain]Resolver
	logger    *zap.Logger
}

// NewSessionResolver registers resolvers; a later resolver for the same domain wins.
func NewSessionResolver(logger *zap.Logger, resolvers ...Resolver) *SessionResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	byDomain := make(map[domain.Domain]Resolver, len(resolvers))
	for _, r := range resolvers {
		byDomain[r.Domain()] = r
	}
	return &SessionResolver{resolvers: byDomain, logger: logger}
}

// NewDefaultSessionResolver registers the four session-backed domains over shared deps.
func NewDefaultSessionResolver(deps ResolverDeps) *SessionResolver {
	return NewSessionResolver(deps.Logger,
		NewStaffResolver(deps),
		NewPatientResolver(deps),
		NewNurseResolver(deps),
		NewAdminResolver(deps),
	)
}

// Resolve returns the identity for d, or false when the request is unauthenticated.
func (s *SessionResolver) Resolve(ctx context.Context, creds CredentialStore, d domain.Domain) (identity domain.Identity, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("session resolution panicked", zap.String("domain", string(d)), zap.Any("panic", rec))
			identity, ok = nil, false
		}
	}()

	r, found := s.resolvers[d]
	if !found {
		s.logger.Error("no resolver registered", zap.String("domain", string(d)))
		return nil, false
	}
	return r.Resolve(ctx, creds)
}

// ResolveAny tries each domain in order and returns the first identity found.
func (s *SessionResolver) ResolveAny(ctx context.Context, creds CredentialStore, domains ...domain.Domain) (domain.Identity, bool) {
	for _, d := range domains {
		if id, ok := s.Resolve(ctx, creds, d); ok {
			return id, true
		}
	}
	return nil, false
}
