package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tokengate/middleware/pkg/auth"
	"github.com/tokengate/middleware/pkg/gate"
	"github.com/tokengate/middleware/pkg/gate/store"
	"github.com/tokengate/middleware/pkg/nonce"
)

const testAdminToken = "test-admin-token"

type testServer struct {
	router  chi.Router
	nonces  nonce.Store
	configs *store.Memory
}

func newTestServer(t *testing.T, balances *MockBalanceOracle, prices *MockPriceOracle) *testServer {
	t.Helper()

	configs := store.NewMemory()
	nonces := nonce.NewMemoryStore()
	sessions := auth.NewSessions("test-secret", time.Hour)

	if balances == nil {
		balances = &MockBalanceOracle{}
	}
	if prices == nil {
		prices = &MockPriceOracle{}
	}

	svc := NewService(configs, configs, balances, prices, zap.NewNop())
	handler := NewHTTP(svc, nonces, sessions, 5*time.Minute, testAdminToken, zap.NewNop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	return &testServer{router: r, nonces: nonces, configs: configs}
}

func (ts *testServer) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func signChallenge(t *testing.T, wallet solana.PrivateKey, message string) string {
	t.Helper()
	sig, err := wallet.Sign([]byte(message))
	if err != nil {
		t.Fatalf("failed to sign challenge: %v", err)
	}
	return sig.String()
}

func TestChallenge_RequiresValidPubkey(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/auth/nonce", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing pubkey: status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/auth/nonce?pubkey=not-base58!!", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed pubkey: status = %d, want 400", rec.Code)
	}
}

func TestChallenge_IssuesNonceAndMessage(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	wallet := solana.NewWallet()

	rec := ts.do(t, http.MethodGet, "/auth/nonce?pubkey="+wallet.PublicKey().String(), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var challenge nonce.Challenge
	decodeBody(t, rec, &challenge)
	if challenge.Nonce == "" {
		t.Error("nonce should not be empty")
	}
	if !nonce.MessageEmbeds(challenge.Message, challenge.Nonce) {
		t.Error("message should embed the nonce")
	}
}

func TestVerify_FullFlow(t *testing.T) {
	ts := newTestServer(t, fixedBalance("500"), nil)
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	// Amount-gated at 100 tokens; the wallet holds 500.
	if err := ts.configs.SaveConfig(context.Background(), &gate.Config{
		Enabled:   true,
		Mint:      testMint,
		MinAmount: decPtr("100"),
	}); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/auth/nonce?pubkey="+pubkey, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("challenge status = %d, want 200", rec.Code)
	}
	var challenge nonce.Challenge
	decodeBody(t, rec, &challenge)

	rec = ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, wallet.PrivateKey, challenge.Message),
		"message":   challenge.Message,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp verifyResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("session token should be issued")
	}
	if resp.Details == nil || !resp.Details.Allowed {
		t.Error("decision details should report allowed")
	}

	// The issued token must authenticate the session endpoint.
	rec = ts.do(t, http.MethodGet, "/auth/session", nil, map[string]string{
		"Authorization": "Bearer " + resp.Token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var session sessionResponse
	decodeBody(t, rec, &session)
	if session.Wallet != pubkey {
		t.Errorf("session wallet = %q, want %q", session.Wallet, pubkey)
	}
}

func TestVerify_DeniedWalletGets403(t *testing.T) {
	ts := newTestServer(t, fixedBalance("5"), nil)
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	if err := ts.configs.SaveConfig(context.Background(), &gate.Config{
		Enabled:   true,
		Mint:      testMint,
		MinAmount: decPtr("100"),
	}); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	challenge, err := ts.nonces.Issue(context.Background(), pubkey, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue nonce: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, wallet.PrivateKey, challenge.Message),
		"message":   challenge.Message,
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}

	var resp deniedResponse
	decodeBody(t, rec, &resp)
	if resp.Reason != gate.ReasonInsufficientAmount {
		t.Errorf("reason = %q, want %q", resp.Reason, gate.ReasonInsufficientAmount)
	}
}

func TestVerify_MissingNonce(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	wallet := solana.NewWallet()

	message := "Sign this message to authenticate with your wallet.\n\nNonce: never-issued"
	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    wallet.PublicKey().String(),
		"signature": signChallenge(t, wallet.PrivateKey, message),
		"message":   message,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerify_ReplayFails(t *testing.T) {
	ts := newTestServer(t, fixedBalance("500"), nil)
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	if err := ts.configs.SaveConfig(context.Background(), &gate.Config{
		Enabled:   true,
		Mint:      testMint,
		MinAmount: decPtr("100"),
	}); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	challenge, err := ts.nonces.Issue(context.Background(), pubkey, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue nonce: %v", err)
	}
	body := map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, wallet.PrivateKey, challenge.Message),
		"message":   challenge.Message,
	}

	rec := ts.do(t, http.MethodPost, "/auth/verify", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first verify status = %d, want 200", rec.Code)
	}

	// Same signed message again: the nonce is gone.
	rec = ts.do(t, http.MethodPost, "/auth/verify", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replay status = %d, want 401", rec.Code)
	}
}

func TestVerify_WrongSigner(t *testing.T) {
	ts := newTestServer(t, fixedBalance("500"), nil)
	wallet := solana.NewWallet()
	attacker := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	challenge, err := ts.nonces.Issue(context.Background(), pubkey, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue nonce: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, attacker.PrivateKey, challenge.Message),
		"message":   challenge.Message,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerify_MessageWithoutNonce(t *testing.T) {
	ts := newTestServer(t, fixedBalance("500"), nil)
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	if _, err := ts.nonces.Issue(context.Background(), pubkey, time.Minute); err != nil {
		t.Fatalf("failed to issue nonce: %v", err)
	}

	// Correctly signed, but over a message that omits the issued nonce.
	message := "some other message"
	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, wallet.PrivateKey, message),
		"message":   message,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerify_RejectsIncompleteBody(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey": "something",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVerify_BalanceOracleDownGets502(t *testing.T) {
	ts := newTestServer(t, &MockBalanceOracle{
		TokenAmountFunc: func(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
			return decimal.Zero, context.DeadlineExceeded
		},
	}, nil)
	wallet := solana.NewWallet()
	pubkey := wallet.PublicKey().String()

	if err := ts.configs.SaveConfig(context.Background(), &gate.Config{
		Enabled:   true,
		Mint:      testMint,
		MinAmount: decPtr("100"),
	}); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	challenge, err := ts.nonces.Issue(context.Background(), pubkey, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue nonce: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/auth/verify", map[string]string{
		"pubkey":    pubkey,
		"signature": signChallenge(t, wallet.PrivateKey, challenge.Message),
		"message":   challenge.Message,
	}, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminGate_RequiresToken(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/admin/gate/", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/admin/gate/", nil, map[string]string{
		"Authorization": "Bearer wrong-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}
}

func TestAdminGate_UpdateAndRead(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPut, "/admin/gate/", map[string]any{
		"enabled":   true,
		"mint":      testMint,
		"min_usd":   100.0,
		"tolerance": 0.02,
		"coin_id":   "solana",
	}, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/admin/gate/", nil, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("read status = %d, want 200", rec.Code)
	}

	var cfg configResponse
	decodeBody(t, rec, &cfg)
	if !cfg.Enabled {
		t.Error("config should be enabled")
	}
	if cfg.MinUSD == nil || !cfg.MinUSD.Equal(dec("100")) {
		t.Errorf("MinUSD = %v, want 100", cfg.MinUSD)
	}
	if cfg.MinAmount != nil {
		t.Error("MinAmount should be unset")
	}
}

func TestAdminGate_ConflictingThresholds(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPut, "/admin/gate/", map[string]any{
		"enabled":    true,
		"mint":       testMint,
		"min_amount": 10.0,
		"min_usd":    100.0,
	}, adminHeaders())
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestGatePreview_Public(t *testing.T) {
	ts := newTestServer(t, nil, fixedPrice("2"))

	if err := ts.configs.SaveConfig(context.Background(), &gate.Config{
		Enabled:   true,
		Mint:      testMint,
		MinUSD:    decPtr("100"),
		PriceMode: gate.PriceModeCoinID,
		CoinID:    "solana",
	}); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/gate-preview", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var preview gate.Preview
	decodeBody(t, rec, &preview)
	if !preview.Enabled {
		t.Error("preview should report the gate as enabled")
	}
	if preview.RequiredTokens == nil || !preview.RequiredTokens.Equal(dec("50")) {
		t.Errorf("RequiredTokens = %v, want 50", preview.RequiredTokens)
	}
}
