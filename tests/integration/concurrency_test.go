package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"gift-market-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentWithdrawals_NoDoubleSpend races two withdrawals of 3 against
// an available balance of 4. The wallet row lock serializes them; the loser
// must observe the winner's in-flight debit and be rejected. Exactly one may
// succeed.
func TestConcurrentWithdrawals_NoDoubleSpend(t *testing.T) {
	app := newTestApp(t)
	token := app.openSession(t, 4001)
	app.seedLedger(t, 4001, "4")

	body := fmt.Sprintf(`{"amount":"3","destination_address":"%s","connected_wallet_address":"%s"}`, walletAddr, walletAddr)

	var successes, rejections int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := app.do(t, http.MethodPost, "/api/v1/wallet/withdrawals", token, []byte(body))
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				var out struct {
					Data struct {
						Success bool `json:"success"`
					} `json:"data"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				if out.Data.Success {
					atomic.AddInt64(&successes, 1)
				}
			case http.StatusPaymentRequired:
				atomic.AddInt64(&rejections, 1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes, "exactly one withdrawal may claim the funds")
	assert.Equal(t, int64(1), rejections, "the loser must see insufficient balance")

	// 4 deposited − 3 withdrawn = 1 spendable.
	summary, err := app.ledgerSvc.AvailableBalance(context.Background(), 4001)
	require.NoError(t, err)
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(1)), "available = %s", summary.Available)
}

// TestConcurrentJobClaim_Exclusive races pollers over a single pending job;
// only one claim may succeed.
func TestConcurrentJobClaim_Exclusive(t *testing.T) {
	repo := newInMemoryJobRepo()
	payload, err := domain.StampPayload(5001, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &domain.Job{
		ID:          uuid.New(),
		UserID:      5001,
		Type:        domain.JobTypeBalanceRefresh,
		Payload:     payload,
		Status:      domain.JobStatusPending,
		MaxAttempts: 3,
	}))

	var claims int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ClaimNext(context.Background(), domain.JobTypeBalanceRefresh); err == nil {
				atomic.AddInt64(&claims, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), claims, "a job may be claimed exactly once")
}

// TestConcurrentWithdrawals_ManyRequestsBounded hammers the pipeline with
// ten 1-unit withdrawals against a balance of 4; at most four can complete
// and the ledger can never go negative.
func TestConcurrentWithdrawals_ManyRequestsBounded(t *testing.T) {
	app := newTestApp(t)
	token := app.openSession(t, 4002)
	app.seedLedger(t, 4002, "4")

	body := fmt.Sprintf(`{"amount":"1","destination_address":"%s","connected_wallet_address":"%s"}`, walletAddr, walletAddr)

	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := app.do(t, http.MethodPost, "/api/v1/wallet/withdrawals", token, []byte(body))
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return
			}
			var out struct {
				Data struct {
					Success bool `json:"success"`
				} `json:"data"`
			}
			if json.NewDecoder(resp.Body).Decode(&out) == nil && out.Data.Success {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(4), successes, "the balance covers exactly four 1-unit withdrawals")

	summary, err := app.ledgerSvc.AvailableBalance(context.Background(), 4002)
	require.NoError(t, err)
	assert.False(t, summary.Available.IsNegative(), "ledger must never go negative")
	assert.True(t, summary.Available.IsZero(), "available = %s", summary.Available)
}
