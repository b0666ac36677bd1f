package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
)

// ActivationUseCase orchestrates code redemption, status checks, revocation
// and code generation. Every mutation runs inside a single transaction
// supplied by the TransactionManager; no read-modify-write spans two round
// trips.
type ActivationUseCase struct {
	codes    repository.CodeRepository
	bindings repository.BindingRepository
	tm       repository.TransactionManager
	plans    model.PlanTable
	genCap   int
	log      *zerolog.Logger
	now      func() time.Time
}

func NewActivationUseCase(
	codes repository.CodeRepository,
	bindings repository.BindingRepository,
	tm repository.TransactionManager,
	plans model.PlanTable,
	generateCap int,
	logger *zerolog.Logger,
) *ActivationUseCase {
	if generateCap <= 0 {
		generateCap = 5000
	}
	return &ActivationUseCase{
		codes:    codes,
		bindings: bindings,
		tm:       tm,
		plans:    plans,
		genCap:   generateCap,
		log:      logger,
		now:      time.Now,
	}
}

// Activate redeems code for deviceID. Exactly one device can win a given
// code: the code row is locked for the duration of the transaction, and the
// binding primary key rejects a second activation for the same device.
// Plan duration is resolved against the live configuration at activation
// time, not frozen at generation.
func (uc *ActivationUseCase) Activate(ctx context.Context, deviceID, code string) (*model.DeviceBinding, error) {
	if deviceID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}

	var binding *model.DeviceBinding
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ac, err := uc.codes.FindForRedemption(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidCode
			}
			return err
		}
		if ac.Redeemed() {
			return domain.ErrInvalidCode
		}

		if _, err := uc.bindings.FindByDevice(ctx, tx, deviceID); err == nil {
			return domain.ErrAlreadyBound
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		dur, err := uc.plans.Duration(ac.PlanType)
		if err != nil {
			uc.log.Error().Str("code", code).Str("plan_type", ac.PlanType).
				Msg("activation code references a plan missing from configuration")
			return err
		}

		now := uc.now().UTC()
		b := &model.DeviceBinding{
			DeviceID:       deviceID,
			ActivationCode: ac.Code,
			PlanType:       ac.PlanType,
			ActivatedAt:    now,
			ExpiresAt:      now.Add(dur),
		}
		if err := uc.codes.MarkRedeemed(ctx, tx, ac.Code, deviceID); err != nil {
			return err
		}
		if err := uc.bindings.Insert(ctx, tx, b); err != nil {
			return err
		}
		binding = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("device_id", deviceID).Str("code", code).
		Str("plan_type", binding.PlanType).Time("expires_at", binding.ExpiresAt).
		Msg("device activated")
	return binding, nil
}

// CheckStatus derives the entitlement state live from the binding; expiry is
// never stored, so repeated calls with no intervening mutation are
// idempotent.
func (uc *ActivationUseCase) CheckStatus(ctx context.Context, deviceID string) (model.EntitlementStatus, error) {
	if deviceID == "" {
		return model.EntitlementStatus{}, domain.ErrInvalidArgument
	}
	b, err := uc.bindings.FindByDevice(ctx, repository.NoTX, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.EntitlementStatus{State: model.StateUnactivated}, nil
		}
		return model.EntitlementStatus{}, err
	}
	st := model.EntitlementStatus{PlanType: b.PlanType, ExpiresAt: b.ExpiresAt}
	if b.Active(uc.now()) {
		st.State = model.StateActivated
	} else {
		st.State = model.StateExpired
	}
	return st, nil
}

// Guard is the single authorization primitive applied ahead of every
// protected operation.
func (uc *ActivationUseCase) Guard(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.ErrInvalidArgument
	}
	b, err := uc.bindings.FindByDevice(ctx, repository.NoTX, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !b.Active(uc.now()) {
		return domain.ErrExpired
	}
	return nil
}

// Revoke deletes the binding and frees its code for reuse in one
// transaction. Administrative operation, never exposed to end clients.
func (uc *ActivationUseCase) Revoke(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.ErrInvalidArgument
	}
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		b, err := uc.bindings.FindByDevice(ctx, tx, deviceID)
		if err != nil {
			return err
		}
		if err := uc.bindings.Delete(ctx, tx, deviceID); err != nil {
			return err
		}
		return uc.codes.ClearRedemption(ctx, tx, b.ActivationCode)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("device_id", deviceID).Msg("device authorization revoked")
	return nil
}

// maxTokenRounds bounds regeneration after primary-key collisions.
const maxTokenRounds = 5

// Generate inserts n fresh single-use codes for planType and returns the
// tokens. Tokens that collide with existing rows are regenerated.
func (uc *ActivationUseCase) Generate(ctx context.Context, n int, planType string) ([]string, error) {
	if n < 1 || n > uc.genCap {
		return nil, domain.ErrInvalidArgument
	}
	if !uc.plans.Has(planType) {
		return nil, domain.ErrUnknownPlan
	}

	var out []string
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		remaining := n
		for round := 0; remaining > 0 && round < maxTokenRounds; round++ {
			batch := make([]*model.ActivationCode, 0, remaining)
			now := uc.now().UTC()
			for i := 0; i < remaining; i++ {
				token, err := generateCodeToken()
				if err != nil {
					return err
				}
				batch = append(batch, &model.ActivationCode{
					Code:      token,
					PlanType:  planType,
					CreatedAt: now,
				})
			}
			inserted, err := uc.codes.InsertBatch(ctx, tx, batch)
			if err != nil {
				return err
			}
			out = append(out, inserted...)
			remaining = n - len(out)
		}
		if remaining > 0 {
			return domain.ErrInvalidArgument
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Int("quantity", n).Str("plan_type", planType).Msg("activation codes generated")
	return out, nil
}

// Plans exposes the configured plan table (read-only by convention).
func (uc *ActivationUseCase) Plans() model.PlanTable { return uc.plans }
