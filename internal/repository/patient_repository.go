package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/domain"
)

// RowQuerier is the slice of *pgxpool.Pool the repository uses.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PatientRepository answers affiliation and critical-data reads keyed on a tenant scope.
type PatientRepository interface {
	Reachable(ctx context.Context, patientID string, scope auth.TenantScope) (bool, error)
	CriticalData(ctx context.Context, patientID string) (*domain.CriticalData, error)
}

type patientRepository struct {
	db RowQuerier
}

// NewPatientRepository returns a Postgres-backed implementation. Pass a *pgxpool.Pool.
func NewPatientRepository(db RowQuerier) PatientRepository {
	return &patientRepository{db: db}
}

const (
	organizationPatientQuery = `
        SELECT EXISTS (
            SELECT 1 FROM patient_organizations
            WHERE patient_id=$1 AND organization_id=$2)`

	nursePatientQuery = `
        SELECT EXISTS (
            SELECT 1 FROM nurse_patient_assignments
            WHERE patient_id=$1 AND nurse_id=$2 AND active)`

	patientExistsQuery = `
        SELECT EXISTS (SELECT 1 FROM patients WHERE id=$1)`
)

// Reachable never crosses tenants: organization scopes see their affiliated
// patients, independent nurses see their assigned patients, patients see
// themselves, and the platform scope sees no individual patient.
func (r *patientRepository) Reachable(ctx context.Context, patientID string, scope auth.TenantScope) (bool, error) {
	var (
		query string
		args  []any
	)
	switch scope.Kind {
	case auth.ScopeOrganization:
		org, ok := scope.Organization()
		if !ok {
			return false, nil
		}
		query, args = organizationPatientQuery, []any{patientID, org}
	case auth.ScopeIndependent:
		if scope.SubjectID == "" {
			return false, nil
		}
		query, args = nursePatientQuery, []any{patientID, scope.SubjectID}
	case auth.ScopePatient:
		if scope.SubjectID != patientID {
			return false, nil
		}
		query, args = patientExistsQuery, []any{patientID}
	default:
		return false, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("patient reachability: %w", err)
	}
	return exists, nil
}

func (r *patientRepository) CriticalData(ctx context.Context, patientID string) (*domain.CriticalData, error) {
	const query = `
        SELECT COALESCE(p.blood_type, ''),
            COALESCE((SELECT array_agg(a.substance ORDER BY a.substance)
                FROM patient_allergies a WHERE a.patient_id = p.id), '{}'),
            COALESCE((SELECT json_agg(json_build_object('name', c.name, 'relationship', c.relationship, 'phone', c.phone) ORDER BY c.priority)
                FROM patient_emergency_contacts c WHERE c.patient_id = p.id), '[]'),
            COALESCE((SELECT json_agg(json_build_object('name', m.name, 'dosage', m.dosage) ORDER BY m.name)
                FROM patient_medications m WHERE m.patient_id = p.id AND m.active), '[]')
        FROM patients p WHERE p.id=$1`

	data := domain.CriticalData{PatientID: patientID}
	if err := r.db.QueryRow(ctx, query, patientID).Scan(
		&data.BloodType,
		&data.Allergies,
		&data.EmergencyContacts,
		&data.ActiveMedications,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPatientNotFound
		}
		return nil, fmt.Errorf("critical data: %w", err)
	}
	return &data, nil
}
