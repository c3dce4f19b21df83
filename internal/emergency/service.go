package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/domain"
	"github.com/spec-kit/care-access/internal/events"
	"github.com/spec-kit/care-access/internal/observability"
	apperrors "github.com/spec-kit/care-access/pkg/util"
)

// PatientDirectory answers the data-store questions the service needs.
type PatientDirectory interface {
	// Reachable reports whether patientID is visible from scope.
	Reachable(ctx context.Context, patientID string, scope auth.TenantScope) (bool, error)
	CriticalData(ctx context.Context, patientID string) (*domain.CriticalData, error)
}

// InvalidReason explains a failed validation.
type InvalidReason string

const (
	ReasonNotFound InvalidReason = "NOT_FOUND"
	ReasonExpired  InvalidReason = "EXPIRED"
	ReasonRevoked  InvalidReason = "REVOKED"
)

// Grant is what a valid token entitles its bearer to.
type Grant struct {
	PatientID string
	Scope     []domain.EmergencyField
	ExpiresAt time.Time
}

// Validation is either a Grant or an InvalidReason.
type Validation struct {
	Grant  *Grant
	Reason InvalidReason
}

func (v Validation) Valid() bool { return v.Grant != nil }

func invalid(reason InvalidReason) Validation { return Validation{Reason: reason} }

// Options bound token lifetimes. Zero values fall back to the package defaults.
type Options struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration

	// Retention keeps records past their expiry so validation can still
	// tell an expired token from one that never existed.
	Retention time.Duration
}

const (
	defaultTTL       = 24 * time.Hour
	minTTL           = 5 * time.Minute
	maxTTL           = 30 * 24 * time.Hour
	defaultRetention = 7 * 24 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = defaultTTL
	}
	if o.MinTTL <= 0 {
		o.MinTTL = minTTL
	}
	if o.MaxTTL <= 0 {
		o.MaxTTL = maxTTL
	}
	if o.Retention <= 0 {
		o.Retention = defaultRetention
	}
	return o
}

// ServiceDeps wires the service to its collaborators.
type ServiceDeps struct {
	Store    TokenStore
	Patients PatientDirectory
	Events   events.Dispatcher
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service issues, validates and revokes emergency tokens. It holds no state
// of its own; every write is a single store call acknowledged before return.
type Service struct {
	store    TokenStore
	patients PatientDirectory
	events   events.Dispatcher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
	opts     Options
}

func NewService(deps ServiceDeps, opts Options) *Service {
	s := &Service{
		store:    deps.Store,
		patients: deps.Patients,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
		opts:     opts.withDefaults(),
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IssueRequest describes a token to mint. Zero TTL means the default lifetime;
// empty Fields means every critical field.
type IssueRequest struct {
	PatientID string
	TTL       time.Duration
	Fields    []domain.EmergencyField
}

// Issue mints a token for a patient reachable from the issuer's tenant scope.
// The returned record carries the raw token; it is never retrievable again.
func (s *Service) Issue(ctx context.Context, req IssueRequest, issuer domain.Identity) (*domain.EmergencyToken, error) {
	scope, err := s.admit(issuer)
	if err != nil {
		return nil, err
	}
	if req.PatientID == "" {
		return nil, apperrors.NewValidationError("patient_id is required", nil)
	}
	if req.TTL < 0 {
		return nil, apperrors.NewValidationError("ttl must not be negative", nil)
	}
	fields, err := domain.NormalizeFields(req.Fields)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.requireReachable(ctx, req.PatientID, scope); err != nil {
		return nil, err
	}

	ttl := s.clampTTL(req.TTL)
	now := s.now()
	token := &domain.EmergencyToken{
		Token:     uuid.NewString(),
		PatientID: req.PatientID,
		Scope:     fields,
		IssuedBy:  issuer.SubjectID(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	digest := Digest(token.Token)
	if err := s.store.Put(ctx, digest, token, ttl+s.opts.Retention); err != nil {
		return nil, err
	}

	s.logger.Info("emergency token issued",
		zap.String("patient_id", token.PatientID),
		zap.String("issued_by", token.IssuedBy),
		zap.Time("expires_at", token.ExpiresAt),
	)
	s.publish(ctx, events.EventEmergencyTokenIssued, token.PatientID, actorOf(issuer), events.TokenIssuedPayload{
		TokenDigest: digest,
		Scope:       fields,
		ExpiresAt:   token.ExpiresAt,
	})
	return token, nil
}

// Validate resolves a raw token. It never mutates the record; expiry is
// recomputed against the clock on each call. Only store failures are errors.
func (s *Service) Validate(ctx context.Context, token string) (Validation, error) {
	v, err := s.validate(ctx, token)
	if err != nil {
		s.metrics.RecordValidation("ERROR")
		return Validation{}, err
	}
	if v.Valid() {
		s.metrics.RecordValidation("VALID")
	} else {
		s.metrics.RecordValidation(string(v.Reason))
	}
	return v, nil
}

func (s *Service) validate(ctx context.Context, token string) (Validation, error) {
	if token == "" {
		return invalid(ReasonNotFound), nil
	}
	rec, err := s.store.Get(ctx, Digest(token))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return invalid(ReasonNotFound), nil
		}
		return Validation{}, err
	}
	switch rec.Status(s.now()) {
	case domain.TokenRevoked:
		return invalid(ReasonRevoked), nil
	case domain.TokenExpired:
		return invalid(ReasonExpired), nil
	}
	return Validation{Grant: &Grant{
		PatientID: rec.PatientID,
		Scope:     append([]domain.EmergencyField(nil), rec.Scope...),
		ExpiresAt: rec.ExpiresAt,
	}}, nil
}

// View validates token on behalf of an anonymous viewer, records the attempt,
// and projects the patient's critical data onto the granted scope.
func (s *Service) View(ctx context.Context, token string, viewer events.Actor) (*domain.EmergencyView, Validation, error) {
	v, err := s.Validate(ctx, token)
	if err != nil {
		return nil, Validation{}, err
	}
	if !v.Valid() {
		s.publish(ctx, events.EventEmergencyAccessDenied, "", viewer, events.AccessPayload{
			TokenDigest: digestOrEmpty(token),
			Reason:      string(v.Reason),
		})
		return nil, v, nil
	}

	data, err := s.patients.CriticalData(ctx, v.Grant.PatientID)
	if err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			s.logger.Warn("emergency token outlived its patient", zap.String("patient_id", v.Grant.PatientID))
			return nil, invalid(ReasonNotFound), nil
		}
		return nil, Validation{}, fmt.Errorf("load critical data: %w", err)
	}
	view := data.Restrict(v.Grant.Scope)
	s.publish(ctx, events.EventEmergencyAccessed, v.Grant.PatientID, viewer, events.AccessPayload{
		TokenDigest: Digest(token),
	})
	return &view, v, nil
}

// Revoke moves an active token to Revoked. Unknown, expired and already
// revoked tokens are left untouched and reported as success.
func (s *Service) Revoke(ctx context.Context, token string) error {
	_, err := s.revoke(ctx, token, events.Actor{})
	return err
}

// RevokeAs revokes on behalf of an authenticated actor, who must pass the
// same checks as an issuer against the token's patient. A token the actor
// cannot reach is indistinguishable from an unknown one.
func (s *Service) RevokeAs(ctx context.Context, token string, actor domain.Identity) error {
	if _, err := s.Inspect(ctx, token, actor); err != nil {
		return err
	}
	_, err := s.revoke(ctx, token, actorOf(actor))
	return err
}

func (s *Service) revoke(ctx context.Context, token string, actor events.Actor) (bool, error) {
	if token == "" {
		return false, nil
	}
	digest := Digest(token)
	rec, err := s.store.Get(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}
	now := s.now()
	if rec.Status(now) != domain.TokenActive {
		return false, nil
	}

	rec.Revoked = true
	rec.RevokedAt = &now
	if err := s.store.Put(ctx, digest, rec, rec.ExpiresAt.Sub(now)+s.opts.Retention); err != nil {
		return false, err
	}

	s.logger.Info("emergency token revoked",
		zap.String("patient_id", rec.PatientID),
		zap.String("revoked_by", actor.SubjectID),
	)
	s.publish(ctx, events.EventEmergencyTokenRevoked, rec.PatientID, actor, events.TokenRevokedPayload{TokenDigest: digest})
	return true, nil
}

// Inspect returns the stored record for an actor allowed to manage it.
func (s *Service) Inspect(ctx context.Context, token string, actor domain.Identity) (*domain.EmergencyToken, error) {
	scope, err := s.admit(actor)
	if err != nil {
		return nil, err
	}
	rec, err := s.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, apperrors.NewNotFound()
		}
		return nil, err
	}
	if err := s.requireReachable(ctx, rec.PatientID, scope); err != nil {
		return nil, err
	}
	return rec, nil
}

// Lookup reads a record without any authorization. Operator tooling only.
func (s *Service) Lookup(ctx context.Context, token string) (*domain.EmergencyToken, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	return s.store.Get(ctx, Digest(token))
}

// Purge removes records that expired before the cutoff, when the store keeps them.
func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	p, ok := s.store.(Purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeExpired(ctx, before)
}

// Retention is how long records outlive their expiry. Purges should not
// reach further back than now minus Retention.
func (s *Service) Retention() time.Duration {
	return s.opts.Retention
}

// Status is a convenience over the service clock.
func (s *Service) Status(rec *domain.EmergencyToken) domain.TokenStatus {
	return rec.Status(s.now())
}

func (s *Service) admit(identity domain.Identity) (auth.TenantScope, error) {
	decision := auth.Authorize(identity, auth.PolicyEmergencyTokens.Allowed)
	if !decision.Allowed {
		if decision.Reason == auth.DenyNotAuthenticated {
			return auth.TenantScope{}, apperrors.NewUnauthenticated()
		}
		return auth.TenantScope{}, apperrors.NewRoleNotPermitted()
	}
	return auth.Scope(identity)
}

func (s *Service) requireReachable(ctx context.Context, patientID string, scope auth.TenantScope) error {
	ok, err := s.patients.Reachable(ctx, patientID, scope)
	if err != nil {
		return fmt.Errorf("check patient affiliation: %w", err)
	}
	if !ok {
		return apperrors.NewNotFound()
	}
	return nil
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = s.opts.DefaultTTL
	}
	if ttl < s.opts.MinTTL {
		return s.opts.MinTTL
	}
	if ttl > s.opts.MaxTTL {
		return s.opts.MaxTTL
	}
	return ttl
}

func (s *Service) publish(ctx context.Context, typ events.EventType, patientID string, actor events.Actor, payload any) {
	err := s.events.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		PatientID: patientID,
		Actor:     actor,
		Timestamp: s.now(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("audit event not delivered", zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func actorOf(id domain.Identity) events.Actor {
	if id == nil {
		return events.Actor{}
	}
	return events.Actor{Domain: id.Domain(), SubjectID: id.SubjectID()}
}

func digestOrEmpty(token string) string {
	if token == "" {
		return ""
	}
	return Digest(token)
}
