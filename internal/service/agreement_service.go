package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/catalog"
	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/validator"
)

// AgreementBackend is the repository client surface used for agreements.
type AgreementBackend interface {
	ListAgreements(ctx context.Context) ([]model.Agreement, error)
	GetAgreement(ctx context.Context, id uuid.UUID) (*model.Agreement, error)
	CreateAgreement(ctx context.Context, v model.ValidatedAgreement) (*model.Agreement, error)
	UpdateAgreement(ctx context.Context, id uuid.UUID, v model.ValidatedAgreement) (*model.Agreement, error)
	UpdateAgreementStatus(ctx context.Context, id uuid.UUID, status model.AgreementStatus) (*model.Agreement, error)
}

type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// AgreementService mediates every state-changing agreement operation.
type AgreementService struct {
	backend        AgreementBackend
	catalog        CatalogLoader
	lockCalculated bool
	log            zerolog.Logger
}

func NewAgreementService(backend AgreementBackend, catalog CatalogLoader, lockCalculated bool, log zerolog.Logger) *AgreementService {
	return &AgreementService{
		backend:        backend,
		catalog:        catalog,
		lockCalculated: lockCalculated,
		log:            log,
	}
}

// Actions returns the controls the console may offer for an agreement.
func (s *AgreementService) Actions(a model.Agreement) model.AgreementActions {
	return model.ActionsFor(a.Status, s.lockCalculated)
}

// List fetches every agreement and applies the filter in memory.
func (s *AgreementService) List(ctx context.Context, filter model.AgreementFilter) ([]model.Agreement, error) {
	agreements, err := s.backend.ListAgreements(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.Agreement, 0, len(agreements))
	for _, a := range agreements {
		if matches(a, filter) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *AgreementService) Get(ctx context.Context, id uuid.UUID) (*model.Agreement, error) {
	a, err := s.backend.GetAgreement(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// BeginEdit loads the agreement and refuses to enter edit mode when its
// status does not allow edits.
func (s *AgreementService) BeginEdit(ctx context.Context, id uuid.UUID) (*model.Agreement, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Actions(*a).Edit {
		return a, ErrEditBlocked
	}
	return a, nil
}

// Create validates the payload against the current catalog and persists it.
// The backend assigns id, code, timestamps and the initial status.
func (s *AgreementService) Create(ctx context.Context, payload model.AgreementPayload) (*model.Agreement, error) {
	v, cat, err := s.validate(ctx, payload)
	if err != nil {
		return nil, err
	}

	created, err := s.backend.CreateAgreement(ctx, *v)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("agreement_id", created.ID.String()).Str("code", created.Code).Msg("agreement created")
	a := cat.Enrich(*created)
	return &a, nil
}

// Update replaces the editable fields of an agreement. Status is never changed here.
func (s *AgreementService) Update(ctx context.Context, id uuid.UUID, payload model.AgreementPayload) (*model.Agreement, error) {
	v, cat, err := s.validate(ctx, payload)
	if err != nil {
		return nil, err
	}

	if _, err := s.BeginEdit(ctx, id); err != nil {
		return nil, err
	}

	updated, err := s.backend.UpdateAgreement(ctx, id, *v)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("agreement_id", id.String()).Msg("agreement updated")
	a := cat.Enrich(*updated)
	return &a, nil
}

// ChangeStatus sets only the status. Which transitions are offered is
// decided by Actions; this call does not re-check the lifecycle table.
func (s *AgreementService) ChangeStatus(ctx context.Context, id uuid.UUID, target model.AgreementStatus) (*model.Agreement, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, target)
	}
	updated, err := s.backend.UpdateAgreementStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("agreement_id", id.String()).Str("status", string(updated.Status)).Msg("agreement status changed")
	return updated, nil
}

func (s *AgreementService) Delete(ctx context.Context, id uuid.UUID, confirmed bool) (*model.Agreement, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	return s.ChangeStatus(ctx, id, model.AgreementStatusDeleted)
}

func (s *AgreementService) Restore(ctx context.Context, id uuid.UUID) (*model.Agreement, error) {
	return s.ChangeStatus(ctx, id, model.AgreementStatusReadyForCalculation)
}

// Calculate is not implemented by the backend yet.
func (s *AgreementService) Calculate(_ context.Context, _ uuid.UUID) (*model.Agreement, error) {
	return nil, ErrCalculationDisabled
}

func (s *AgreementService) validate(ctx context.Context, payload model.AgreementPayload) (*model.ValidatedAgreement, *catalog.Catalog, error) {
	cat, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	v, err := validator.Validate(payload, cat)
	if err != nil {
		return nil, nil, err
	}
	return v, cat, nil
}

func matches(a model.Agreement, f model.AgreementFilter) bool {
	if f.HideDeleted && a.IsDeleted() {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.SupplierCode != "" && a.SupplierCode != f.SupplierCode {
		return false
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}
	for _, field := range []string{a.Code, a.SupplierName, a.SupplierCode, a.AgreementTypeName} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
