package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-key", 2*time.Second, zerolog.Nop())
}

func TestClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getAddressBalance", r.URL.Path)
		assert.Equal(t, "EQtest", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"ok":true,"result":"2500000000"}`))
	}))
	defer server.Close()

	balance, err := newTestClient(server.URL).GetBalance(context.Background(), "EQtest")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("2.5")), "got %s", balance)
}

func TestClient_GetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getTransactions", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"ok":true,"result":[
			{"transaction_id":{"hash":"abc"},"utime":1700000000,
			 "in_msg":{"source":"EQpayer","destination":"EQtest","value":"5000000000","message":"memo-blob"}},
			{"transaction_id":{"hash":"bad"},"utime":1700000001,
			 "in_msg":{"source":"EQpayer","destination":"EQtest","value":"not-a-number","message":""}}
		]}`))
	}))
	defer server.Close()

	transfers, err := newTestClient(server.URL).GetTransactions(context.Background(), "EQtest", 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1, "unparseable transfers are skipped")
	assert.Equal(t, "abc", transfers[0].Hash)
	assert.Equal(t, "EQpayer", transfers[0].FromAddress)
	assert.Equal(t, "memo-blob", transfers[0].Memo)
	assert.True(t, transfers[0].Amount.Equal(decimal.NewFromInt(5)))
}

func TestClient_SubmitTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sendTransfer", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"ok":true,"result":{"hash":"txhash-1"}}`))
	}))
	defer server.Close()

	hash, err := newTestClient(server.URL).SubmitTransfer(context.Background(), ports.TransferSubmission{
		FromAddress: "EQfrom",
		ToAddress:   "EQto",
		Amount:      decimal.RequireFromString("1.5"),
		DedupeKey:   "wd:tx-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "txhash-1", hash)
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetBalance(context.Background(), "EQtest")
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

func TestClient_APIErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"rate limited"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetBalance(context.Background(), "EQtest")
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))
}

func TestClient_ClientErrorIsFinal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetBalance(context.Background(), "EQtest")
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"ok":true,"result":"0"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 50*time.Millisecond, zerolog.Nop())
	_, err := client.GetBalance(context.Background(), "EQtest")
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err), "timeouts must be retryable")
}
