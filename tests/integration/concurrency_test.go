package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRaw is the goroutine-safe variant of post: it reports failures as
// errors instead of failing the test from a non-test goroutine.
func (app *testApp) postRaw(path string, body interface{}) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := http.Post(app.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// TestConcurrentDeposits runs deposits against many wallets in parallel and
// verifies every wallet ends with exactly its own credits. Each request goes
// through the full HTTP stack.
func TestConcurrentDeposits(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const customers = 50
	ids := make([]string, customers)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var wg sync.WaitGroup
	errs := make(chan error, customers)
	for _, id := range ids {
		wg.Add(1)
		go func(customerID string) {
			defer wg.Done()
			code, err := app.postRaw("/api/v1/wallets/deposit", map[string]interface{}{
				"owner_kind": "CUSTOMER",
				"owner_id":   customerID,
				"amount":     "100",
			})
			if err != nil {
				errs <- err
				return
			}
			if code != http.StatusCreated {
				errs <- fmt.Errorf("deposit for %s: status %d", customerID, code)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, id := range ids {
		assert.Equal(t, "100", app.walletBalance(t, "CUSTOMER", id))
	}
}

// TestConcurrentTransfers moves money between disjoint wallet pairs in
// parallel. Every pair must conserve its combined balance.
func TestConcurrentTransfers(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const pairs = 20
	type pair struct{ from, to string }
	ps := make([]pair, pairs)
	for i := range ps {
		ps[i] = pair{from: uuid.NewString(), to: uuid.NewString()}
		code, _ := app.post(t, "/api/v1/wallets/deposit", map[string]interface{}{
			"owner_kind": "CUSTOMER", "owner_id": ps[i].from, "amount": "1000",
		})
		require.Equal(t, http.StatusCreated, code)
	}

	var wg sync.WaitGroup
	errs := make(chan error, pairs)
	for _, p := range ps {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			code, err := app.postRaw("/api/v1/transfers", map[string]interface{}{
				"from_owner_kind": "CUSTOMER",
				"from_owner_id":   p.from,
				"to_owner_kind":   "CUSTOMER",
				"to_owner_id":     p.to,
				"amount":          "400",
			})
			if err != nil {
				errs <- err
				return
			}
			if code != http.StatusCreated {
				errs <- fmt.Errorf("transfer %s -> %s: status %d", p.from, p.to, code)
			}
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, p := range ps {
		assert.Equal(t, "600", app.walletBalance(t, "CUSTOMER", p.from))
		assert.Equal(t, "400", app.walletBalance(t, "CUSTOMER", p.to))
	}
}

// TestConcurrentIdenticalBookings fires the same idempotent booking request
// repeatedly in parallel. At most one may take the customer's money.
func TestConcurrentIdenticalBookings(t *testing.T) {
	app := newTestApp(t)
	defer app.close()
	_, locationID := app.newBusiness(t)
	customerID := uuid.NewString()

	code, _ := app.post(t, "/api/v1/wallets/deposit", map[string]interface{}{
		"owner_kind": "CUSTOMER", "owner_id": customerID, "amount": "2000",
	})
	require.Equal(t, http.StatusCreated, code)

	body := map[string]interface{}{
		"customer_id":     customerID,
		"location_id":     locationID,
		"total_amount":    "2000",
		"payment_percent": 100,
		"service_date":    "2027-06-01T10:00:00Z",
		"idempotency_key": "double-click-guard",
	}

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := app.postRaw("/api/v1/bookings", body)
			if err == nil && code == http.StatusCreated {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	// Every accepted response replayed the same booking; the customer paid
	// at most once.
	assert.GreaterOrEqual(t, succeeded.Load(), int32(1))
	assert.Equal(t, "0", app.walletBalance(t, "CUSTOMER", customerID))
}
