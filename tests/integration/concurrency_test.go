package integration

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanOutcome is the decoded decision of one concurrent scan request.
type scanOutcome struct {
	status string
	reason string
}

// fireScans runs n concurrent monetary scans against the same pass, each
// with a unique request id, and collects the decisions.
func fireScans(t *testing.T, app *testApp, n int, body func(idx int) map[string]any) []scanOutcome {
	t.Helper()

	outcomes := make([]scanOutcome, n)
	var wg sync.WaitGroup
	var transportErrs atomic.Int64

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, resp := app.postJSON(t, "/api/v1/scan", body(idx))
			if status != http.StatusOK {
				transportErrs.Add(1)
				return
			}
			outcomes[idx] = scanOutcome{status: resp["status"].(string)}
			if r, ok := resp["reason"].(string); ok {
				outcomes[idx].reason = r
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, transportErrs.Load(), "every scan must get a 200 decision")
	return outcomes
}

// TestConcurrentScans_ExactBalance drains a wallet with concurrent charges
// whose total exactly equals the balance. Per-wallet serialization must let
// all of them settle with a consistent pre/post balance chain.
func TestConcurrentScans_ExactBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const concurrency = 50
	const chargeCents = int64(1000)

	app.seedStation(t, "bar-load", "venue-load", domain.StationKindBar, domain.TierManualLog, nil, nil, 0)
	walletID := app.seedPatron(t, "pass-load", false, concurrency*chargeCents)

	outcomes := fireScans(t, app, concurrency, func(idx int) map[string]any {
		return map[string]any{
			"pass_token":   "pass-load",
			"gateway_id":   "bar-load",
			"venue_id":     "venue-load",
			"request_id":   fmt.Sprintf("load-%d", idx),
			"amount_cents": chargeCents,
		}
	})

	for i, o := range outcomes {
		assert.Equal(t, "APPROVED", o.status, "scan %d", i)
	}
	assert.Equal(t, int64(0), app.walletBalance(t, walletID))

	// The ledger must hold one balanced entry per charge plus the topup.
	wid := walletID
	entries, total, err := app.ledger.List(t.Context(), ports.LedgerListParams{
		WalletID: &wid,
		Page:     1,
		PageSize: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(concurrency+1), total)
	for _, e := range entries {
		assert.True(t, e.Balanced(), "entry %s violates the balance invariant", e.ID)
	}
}

// TestConcurrentScans_NeverOverdraw funds only a fraction of the attempted
// charges. Exactly that many may settle; the rest must be denied for
// insufficient funds and the balance must land on zero, never below.
func TestConcurrentScans_NeverOverdraw(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const concurrency = 40
	const funded = 15
	const chargeCents = int64(1000)

	app.seedStation(t, "bar-load", "venue-load", domain.StationKindBar, domain.TierManualLog, nil, nil, 0)
	walletID := app.seedPatron(t, "pass-thin", false, funded*chargeCents)

	outcomes := fireScans(t, app, concurrency, func(idx int) map[string]any {
		return map[string]any{
			"pass_token":   "pass-thin",
			"gateway_id":   "bar-load",
			"venue_id":     "venue-load",
			"request_id":   fmt.Sprintf("thin-%d", idx),
			"amount_cents": chargeCents,
		}
	})

	var approved, denied int
	for _, o := range outcomes {
		switch o.status {
		case "APPROVED":
			approved++
		case "DENIED":
			denied++
			assert.Equal(t, string(ports.DenyReasonInsufficientFunds), o.reason)
		}
	}
	assert.Equal(t, funded, approved)
	assert.Equal(t, concurrency-funded, denied)
	assert.Equal(t, int64(0), app.walletBalance(t, walletID))
}

// TestConcurrentMixedTraffic interleaves charges and topups on one wallet
// and checks the final balance equals the arithmetic sum of what settled.
func TestConcurrentMixedTraffic(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const scans = 20
	const topups = 10
	const chargeCents = int64(500)
	const topupCents = int64(2000)
	const openingCents = int64(50000)

	app.seedStation(t, "concession-1", "venue-mix", domain.StationKindConcession, domain.TierManualLog, nil, nil, 0)
	walletID := app.seedPatron(t, "pass-mix", false, openingCents)

	var wg sync.WaitGroup
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, _ := app.postJSON(t, "/api/v1/scan", map[string]any{
				"pass_token":   "pass-mix",
				"gateway_id":   "concession-1",
				"venue_id":     "venue-mix",
				"request_id":   fmt.Sprintf("mix-%d", idx),
				"amount_cents": chargeCents,
			})
			assert.Equal(t, http.StatusOK, status)
		}(i)
	}
	for i := 0; i < topups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := app.postJSON(t, fmt.Sprintf("/api/v1/wallets/%s/topup", walletID), map[string]any{
				"amount": topupCents,
			})
			assert.Equal(t, http.StatusCreated, status)
		}()
	}
	wg.Wait()

	want := openingCents - scans*chargeCents + topups*topupCents
	assert.Equal(t, want, app.walletBalance(t, walletID))

	wid := walletID
	entries, total, err := app.ledger.List(t.Context(), ports.LedgerListParams{
		WalletID: &wid,
		Page:     1,
		PageSize: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(scans+topups+1), total)
	for _, e := range entries {
		assert.True(t, e.Balanced(), "entry %s violates the balance invariant", e.ID)
	}
}

// TestConcurrentNonMonetaryReplay races duplicate non-monetary scans that
// share a request id. The decision cache keeps whichever decision landed
// first; every duplicate must observe that same decision.
func TestConcurrentNonMonetaryReplay(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const concurrency = 20

	app.seedStation(t, "door-main", "venue-1", domain.StationKindDoor, domain.TierManualLog, nil, nil, 0)
	app.seedPatron(t, "pass-dup", false, 0)

	outcomes := fireScans(t, app, concurrency, func(idx int) map[string]any {
		return map[string]any{
			"pass_token": "pass-dup",
			"gateway_id": "door-main",
			"venue_id":   "venue-1",
			"request_id": "dup-req",
		}
	})

	for i, o := range outcomes {
		assert.Equal(t, "APPROVED", o.status, "scan %d", i)
	}
}
