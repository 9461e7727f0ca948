package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentDeliveries_SingleWinner verifies the per-payment lock: when
// the same payment id is driven through the pipeline by many concurrent
// callers, exactly one creates the record and the rest either lose the lock
// or observe the already-current status.
func TestConcurrentDeliveries_SingleWinner(t *testing.T) {
	app := newTestApp(t)

	app.orders.seed(21, domain.OrderStatusPending)
	app.gateway.set("9009", http.StatusOK, gatewayPaymentJSON("9009", "approved", "ORDER-21"))

	token := app.operatorToken(t)

	const workers = 20
	outcomes := make(chan string, workers)
	skipReasons := make(chan string, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/admin/payments/9009/process", nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var result struct {
				Data struct {
					Outcome    string `json:"outcome"`
					SkipReason string `json:"skip_reason"`
				} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			outcomes <- result.Data.Outcome
			skipReasons <- result.Data.SkipReason
		}()
	}
	close(start)
	wg.Wait()
	close(outcomes)
	close(skipReasons)

	created := 0
	for outcome := range outcomes {
		switch outcome {
		case "created":
			created++
		case "skipped":
			// lost the lock, or saw the status already persisted
		default:
			t.Fatalf("unexpected outcome %q", outcome)
		}
	}
	assert.Equal(t, 1, created, "exactly one caller may create the payment")

	for reason := range skipReasons {
		if reason == "" {
			continue
		}
		assert.Contains(t, []string{"in_flight", "duplicate_status"}, reason)
	}

	count, err := app.payments.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, domain.OrderStatusConfirmed, app.orders.status(21))
}

// TestConcurrentDistinctPayments_NoInterference verifies that the lock is
// per payment id: distinct payments process concurrently without blocking
// or skipping each other.
func TestConcurrentDistinctPayments_NoInterference(t *testing.T) {
	app := newTestApp(t)

	ids := []string{"8101", "8102", "8103", "8104", "8105"}
	for i, id := range ids {
		orderID := int64(100 + i)
		app.orders.seed(orderID, domain.OrderStatusPending)
		app.gateway.set(id, http.StatusOK, gatewayPaymentJSON(id, "approved", domain.BuildCorrelationRef(orderID)))
	}

	token := app.operatorToken(t)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(paymentID string) {
			defer wg.Done()

			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/admin/payments/"+paymentID+"/process", nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var result struct {
				Data struct {
					Outcome string `json:"outcome"`
				} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			assert.Equal(t, "created", result.Data.Outcome)
		}(id)
	}
	wg.Wait()

	count, err := app.payments.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(ids)), count)
	for i := range ids {
		assert.Equal(t, domain.OrderStatusConfirmed, app.orders.status(int64(100+i)))
	}
}

// TestConcurrentWebhookBurst exercises the full async intake path: a burst
// of duplicate deliveries for one payment converges on a single record.
func TestConcurrentWebhookBurst_Converges(t *testing.T) {
	app := newTestApp(t)

	app.orders.seed(33, domain.OrderStatusPending)
	app.gateway.set("9900", http.StatusOK, gatewayPaymentJSON("9900", "approved", "ORDER-33"))

	body := `{"type":"payment","action":"payment.updated","data":{"id":"9900"}}`

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := app.postWebhook(t, body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		p, err := app.payments.GetByPaymentID(context.Background(), "9900")
		return err == nil && p != nil && app.orders.status(33) == domain.OrderStatusConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	count, err := app.payments.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Duplicate deliveries are resolved by the lock and the status guard;
	// none of them may leave failed-event bookkeeping behind.
	pending, err := app.failed.CountByStatus(context.Background(), domain.FailedEventStatusPending)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
