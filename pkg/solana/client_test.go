package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/tokengate/middleware/pkg/config"
)

const testMint = "So11111111111111111111111111111111111111112"

// tokenAccountsResponse builds a getTokenAccountsByOwner JSON-RPC reply with
// one jsonParsed token account per ui amount.
func tokenAccountsResponse(uiAmounts ...string) string {
	accounts := make([]string, 0, len(uiAmounts))
	for _, amount := range uiAmounts {
		accounts = append(accounts, fmt.Sprintf(`{
			"pubkey": "%s",
			"account": {
				"lamports": 2039280,
				"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
				"executable": false,
				"rentEpoch": 0,
				"data": {
					"program": "spl-token",
					"space": 165,
					"parsed": {
						"type": "account",
						"info": {
							"mint": "%s",
							"tokenAmount": {
								"amount": "0",
								"decimals": 9,
								"uiAmount": 0,
								"uiAmountString": "%s"
							}
						}
					}
				}
			}
		}`, solanago.NewWallet().PublicKey(), testMint, amount))
	}

	result := `{"context":{"slot":12345},"value":[`
	for i, acc := range accounts {
		if i > 0 {
			result += ","
		}
		result += acc
	}
	result += `]}`
	return `{"jsonrpc":"2.0","id":1,"result":` + result + `}`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClient(&config.SolanaConfig{
		RPCURL:         server.URL,
		RequestTimeout: 5 * time.Second,
	})
	return client, server.Close
}

func TestTokenAmount_SumsAccounts(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode RPC request: %v", err)
		}
		if req.Method != "getTokenAccountsByOwner" {
			t.Errorf("method = %q, want getTokenAccountsByOwner", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokenAccountsResponse("100.5", "24.5")))
	})
	defer done()

	owner := solanago.NewWallet().PublicKey().String()
	total, err := client.TokenAmount(context.Background(), owner, testMint)
	if err != nil {
		t.Fatalf("TokenAmount() failed: %v", err)
	}
	if total.String() != "125" {
		t.Errorf("TokenAmount() = %s, want 125", total)
	}
}

func TestTokenAmount_NoAccountsMeansZero(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokenAccountsResponse()))
	})
	defer done()

	owner := solanago.NewWallet().PublicKey().String()
	total, err := client.TokenAmount(context.Background(), owner, testMint)
	if err != nil {
		t.Fatalf("TokenAmount() failed: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("TokenAmount() = %s, want 0", total)
	}
}

func TestTokenAmount_RPCFailure(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer done()

	owner := solanago.NewWallet().PublicKey().String()
	_, err := client.TokenAmount(context.Background(), owner, testMint)
	if !errors.Is(err, ErrBalanceUnavailable) {
		t.Errorf("TokenAmount() = %v, want ErrBalanceUnavailable", err)
	}
}

func TestTokenAmount_InvalidAddresses(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("RPC should not be called for invalid addresses")
	})
	defer done()

	owner := solanago.NewWallet().PublicKey().String()

	if _, err := client.TokenAmount(context.Background(), "not-base58!!", testMint); err == nil {
		t.Error("invalid owner should fail")
	}
	if _, err := client.TokenAmount(context.Background(), owner, "not-base58!!"); err == nil {
		t.Error("invalid mint should fail")
	}
}
