//go:build !integration

package usecase

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"glyph-dict-activation/internal/domain"
	"glyph-dict-activation/internal/domain/model"
)

func testPlans() model.PlanTable {
	return model.PlanTable{"monthly": 30, "quarterly": 90, "yearly": 365, "trial": 7}
}

func newActivationFixture(t *testing.T) (*ActivationUseCase, *memCodeRepo, *memBindingRepo) {
	t.Helper()
	codes := newMemCodeRepo()
	bindings := newMemBindingRepo()
	uc := NewActivationUseCase(codes, bindings, &memTxManager{}, testPlans(), 5000, testLogger())
	return uc, codes, bindings
}

func TestActivationUseCase_ActivateLifecycle(t *testing.T) {
	t.Parallel()
	uc, _, _ := newActivationFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return base }

	tokens, err := uc.Generate(context.Background(), 5, "monthly")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tokens) != 5 {
		t.Fatalf("expected 5 tokens, got %d", len(tokens))
	}

	b, err := uc.Activate(context.Background(), "dev-1", tokens[0])
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if b.PlanType != "monthly" {
		t.Errorf("plan type: got %q, want monthly", b.PlanType)
	}
	if want := base.Add(30 * 24 * time.Hour); !b.ExpiresAt.Equal(want) {
		t.Errorf("expires at: got %v, want %v", b.ExpiresAt, want)
	}

	st, err := uc.CheckStatus(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if st.State != model.StateActivated || st.PlanType != "monthly" {
		t.Errorf("status: got %+v", st)
	}

	// Same device, fresh code: the device already holds a binding.
	if _, err := uc.Activate(context.Background(), "dev-1", tokens[1]); !errors.Is(err, domain.ErrAlreadyBound) {
		t.Errorf("second activation: got %v, want ErrAlreadyBound", err)
	}
	// Consumed code from a different device: indistinguishable from unknown.
	if _, err := uc.Activate(context.Background(), "dev-2", tokens[0]); !errors.Is(err, domain.ErrInvalidCode) {
		t.Errorf("redeemed code reuse: got %v, want ErrInvalidCode", err)
	}
	if _, err := uc.Activate(context.Background(), "dev-3", "DEADBEEF"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Errorf("unknown code: got %v, want ErrInvalidCode", err)
	}
}

func TestActivationUseCase_ConcurrentRedemptionSingleWinner(t *testing.T) {
	t.Parallel()
	uc, _, _ := newActivationFixture(t)
	tokens, err := uc.Generate(context.Background(), 1, "yearly")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	const contenders = 32
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = uc.Activate(context.Background(), deviceName(i), tokens[0])
		}(i)
	}
	wg.Wait()

	var wins, rejects int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrInvalidCode):
			rejects++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || rejects != contenders-1 {
		t.Errorf("got %d winners and %d rejections, want 1 and %d", wins, rejects, contenders-1)
	}
}

func deviceName(i int) string {
	return "dev-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

func TestActivationUseCase_RevokeFreesCode(t *testing.T) {
	t.Parallel()
	uc, codes, _ := newActivationFixture(t)
	tokens, err := uc.Generate(context.Background(), 1, "quarterly")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := uc.Activate(context.Background(), "dev-1", tokens[0]); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := uc.Revoke(context.Background(), "dev-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	st, err := uc.CheckStatus(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if st.State != model.StateUnactivated {
		t.Errorf("state after revoke: got %q", st.State)
	}
	ac, err := codes.FindForRedemption(context.Background(), nil, tokens[0])
	if err != nil {
		t.Fatalf("FindForRedemption: %v", err)
	}
	if ac.Redeemed() {
		t.Error("code still marked redeemed after revoke")
	}

	// The freed code is redeemable again, by any device.
	if _, err := uc.Activate(context.Background(), "dev-2", tokens[0]); err != nil {
		t.Errorf("re-activation after revoke: %v", err)
	}

	if err := uc.Revoke(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("revoke unknown device: got %v, want ErrNotFound", err)
	}
}

func TestActivationUseCase_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	uc, _, _ := newActivationFixture(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return base }

	tokens, err := uc.Generate(context.Background(), 1, "trial")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := uc.Activate(context.Background(), "dev-1", tokens[0]); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	expiry := base.Add(7 * 24 * time.Hour)

	uc.now = func() time.Time { return expiry.Add(-time.Second) }
	if st, _ := uc.CheckStatus(context.Background(), "dev-1"); st.State != model.StateActivated {
		t.Errorf("just before expiry: got %q, want activated", st.State)
	}
	if err := uc.Guard(context.Background(), "dev-1"); err != nil {
		t.Errorf("guard before expiry: %v", err)
	}

	// The instant of expiry already counts as expired.
	uc.now = func() time.Time { return expiry }
	if st, _ := uc.CheckStatus(context.Background(), "dev-1"); st.State != model.StateExpired {
		t.Errorf("at expiry instant: got %q, want expired", st.State)
	}
	if err := uc.Guard(context.Background(), "dev-1"); !errors.Is(err, domain.ErrExpired) {
		t.Errorf("guard at expiry: got %v, want ErrExpired", err)
	}
}

func TestActivationUseCase_GuardUnknownDevice(t *testing.T) {
	t.Parallel()
	uc, _, _ := newActivationFixture(t)
	if err := uc.Guard(context.Background(), "nobody"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	if err := uc.Guard(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty device: got %v, want ErrInvalidArgument", err)
	}
}

func TestActivationUseCase_CheckStatusIdempotent(t *testing.T) {
	t.Parallel()
	uc, _, _ := newActivationFixture(t)
	tokens, err := uc.Generate(context.Background(), 1, "monthly")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := uc.Activate(context.Background(), "dev-1", tokens[0]); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	first, err := uc.CheckStatus(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := uc.CheckStatus(context.Background(), "dev-1")
		if err != nil {
			t.Fatalf("CheckStatus: %v", err)
		}
		if again != first {
			t.Fatalf("status drifted on read %d: %+v vs %+v", i, again, first)
		}
	}
}

func TestActivationUseCase_UnknownPlanLeavesCodeUntouched(t *testing.T) {
	t.Parallel()
	codes := newMemCodeRepo()
	bindings := newMemBindingRepo()
	uc := NewActivationUseCase(codes, bindings, &memTxManager{}, testPlans(), 5000, testLogger())

	// A code whose plan was removed from configuration after generation.
	if _, err := codes.InsertBatch(context.Background(), nil, []*model.ActivationCode{
		{Code: "ABCD1234", PlanType: "lifetime", CreatedAt: time.Now().UTC()},
	}); err != nil {
		t.Fatalf("seed code: %v", err)
	}

	if _, err := uc.Activate(context.Background(), "dev-1", "ABCD1234"); !errors.Is(err, domain.ErrUnknownPlan) {
		t.Fatalf("got %v, want ErrUnknownPlan", err)
	}
	ac, err := codes.FindForRedemption(context.Background(), nil, "ABCD1234")
	if err != nil {
		t.Fatalf("FindForRedemption: %v", err)
	}
	if ac.Redeemed() {
		t.Error("failed activation consumed the code")
	}
}

func TestActivationUseCase_GenerateValidation(t *testing.T) {
	t.Parallel()
	codes := newMemCodeRepo()
	uc := NewActivationUseCase(codes, newMemBindingRepo(), &memTxManager{}, testPlans(), 100, testLogger())

	if _, err := uc.Generate(context.Background(), 0, "monthly"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("quantity 0: got %v, want ErrInvalidArgument", err)
	}
	if _, err := uc.Generate(context.Background(), 101, "monthly"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("over cap: got %v, want ErrInvalidArgument", err)
	}
	if _, err := uc.Generate(context.Background(), 5, "lifetime"); !errors.Is(err, domain.ErrUnknownPlan) {
		t.Errorf("unknown plan: got %v, want ErrUnknownPlan", err)
	}

	tokens, err := uc.Generate(context.Background(), 100, "trial")
	if err != nil {
		t.Fatalf("Generate at cap: %v", err)
	}
	tokenShape := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for _, tok := range tokens {
		if !tokenShape.MatchString(tok) {
			t.Fatalf("malformed token %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
