package usecase

import (
	"context"
	"time"

	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// ReportingUseCase serves the admin listing and overview surface: thin,
// read-only CRUD over the entitlement store.
type ReportingUseCase struct {
	codes    repository.CodeRepository
	bindings repository.BindingRepository
	now      func() time.Time
}

func NewReportingUseCase(codes repository.CodeRepository, bindings repository.BindingRepository) *ReportingUseCase {
	return &ReportingUseCase{codes: codes, bindings: bindings, now: time.Now}
}

func clampPage(p repository.Page) repository.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (uc *ReportingUseCase) ListCodes(ctx context.Context, filter repository.CodeFilter, page repository.Page) ([]*model.ActivationCode, int, error) {
	return uc.codes.List(ctx, repository.NoTX, filter, clampPage(page))
}

func (uc *ReportingUseCase) ListBindings(ctx context.Context, filter repository.BindingFilter, page repository.Page) ([]*model.DeviceBinding, int, error) {
	return uc.bindings.List(ctx, repository.NoTX, filter, clampPage(page))
}

// Overview holds aggregate entitlement counts for dashboards and gauges.
type Overview struct {
	CodesUnused     int
	CodesUsed       int
	BindingsActive  int
	BindingsExpired int
}

func (uc *ReportingUseCase) Overview(ctx context.Context) (Overview, error) {
	unused, used, err := uc.codes.CountByRedemption(ctx, repository.NoTX)
	if err != nil {
		return Overview{}, err
	}
	active, expired, err := uc.bindings.CountByExpiry(ctx, repository.NoTX, uc.now())
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		CodesUnused:     unused,
		CodesUsed:       used,
		BindingsActive:  active,
		BindingsExpired: expired,
	}, nil
}
