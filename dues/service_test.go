package dues_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant/community-engine/dues"
	"github.com/verdant/community-engine/engine"
	"github.com/verdant/community-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newDuesService() *dues.Service {
	cfg := dues.Config{MonthlyDue: baseDue, RestrictAfter: dues.DefaultRestrictAfter}
	return dues.NewService(memory.New(), cfg, engine.FixedClock{Day: june15})
}

func payment(month time.Month, amount float64) dues.Payment {
	return dues.Payment{
		ResidentID: testResident,
		Year:       2025,
		Month:      month,
		Amount:     engine.NewAmount(amount),
		Reference:  "OR-0001",
	}
}

// =============================================================================
// PAYMENT POSTING
// =============================================================================

func TestService_PostPaymentAssignsIdentity(t *testing.T) {
	svc := newDuesService()

	posted, err := svc.PostPayment(context.Background(), payment(time.January, 750))

	require.NoError(t, err)
	assert.NotEmpty(t, posted.ID)
	assert.False(t, posted.PostedAt.IsZero())
}

func TestService_PostPaymentValidation(t *testing.T) {
	svc := newDuesService()
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, payment(time.January, 0))
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)

	_, err = svc.PostPayment(ctx, payment(time.January, -50))
	assert.ErrorIs(t, err, engine.ErrInvalidAmount)

	bad := payment(13, 750)
	_, err = svc.PostPayment(ctx, bad)
	assert.Error(t, err)

	anonymous := payment(time.January, 750)
	anonymous.ResidentID = ""
	_, err = svc.PostPayment(ctx, anonymous)
	assert.ErrorIs(t, err, engine.ErrResidentNotFound)
}

func TestService_PostPaymentIdempotencyKeyRejectsDuplicate(t *testing.T) {
	// GIVEN: A payment posted with an idempotency key
	// WHEN: The same key is submitted again (a client retry)
	// THEN: The retry is rejected and the ledger counts the payment once

	svc := newDuesService()
	ctx := context.Background()

	p := payment(time.January, 750)
	p.IdempotencyKey = "retry-guard-1"
	_, err := svc.PostPayment(ctx, p)
	require.NoError(t, err)

	_, err = svc.PostPayment(ctx, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrDuplicateIdempotencyKey)

	ledger, err := svc.YearLedger(ctx, testResident, 2025)
	require.NoError(t, err)
	assert.True(t, baseDue.Equal(ledger.Entry(time.January).TotalPaid))
}

// =============================================================================
// LEDGER AND VERDICT OVER THE STORE
// =============================================================================

func TestService_YearLedgerAggregatesPostedPayments(t *testing.T) {
	// Two partial January payments reconcile as one paid month.
	svc := newDuesService()
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, payment(time.January, 400))
	require.NoError(t, err)
	_, err = svc.PostPayment(ctx, payment(time.January, 350))
	require.NoError(t, err)

	ledger, err := svc.YearLedger(ctx, testResident, 2025)

	require.NoError(t, err)
	jan := ledger.Entry(time.January)
	assert.True(t, jan.IsPaid)
	assert.True(t, baseDue.Equal(jan.TotalPaid))
}

func TestService_MustRestrictFollowsVerdict(t *testing.T) {
	// GIVEN: A resident with no payments at all, today June 15
	// THEN: Restricted; after paying January-May, not restricted

	svc := newDuesService()
	ctx := context.Background()

	restricted, err := svc.MustRestrict(ctx, testResident)
	require.NoError(t, err)
	assert.True(t, restricted)

	for m := time.January; m <= time.May; m++ {
		_, err = svc.PostPayment(ctx, payment(m, 750))
		require.NoError(t, err)
	}

	restricted, err = svc.MustRestrict(ctx, testResident)
	require.NoError(t, err)
	assert.False(t, restricted)
}
