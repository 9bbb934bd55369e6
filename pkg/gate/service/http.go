package service

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tokengate/middleware/internal/metrics"
	apperrors "github.com/tokengate/middleware/pkg/app/errors"
	apphttp "github.com/tokengate/middleware/pkg/app/http"
	"github.com/tokengate/middleware/pkg/auth"
	"github.com/tokengate/middleware/pkg/gate"
	"github.com/tokengate/middleware/pkg/nonce"
)

// HTTP exposes the gate over REST: the wallet challenge/verify flow, the
// public gate preview and the admin config endpoints.
type HTTP struct {
	service    Service
	nonces     nonce.Store
	sessions   *auth.Sessions
	nonceTTL   time.Duration
	adminToken string
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewHTTP creates the HTTP transport for the gate service.
func NewHTTP(
	service Service,
	nonces nonce.Store,
	sessions *auth.Sessions,
	nonceTTL time.Duration,
	adminToken string,
	logger *zap.Logger,
) *HTTP {
	return &HTTP{
		service:    service,
		nonces:     nonces,
		sessions:   sessions,
		nonceTTL:   nonceTTL,
		adminToken: adminToken,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterRoutes registers all gate routes on the router
func (h *HTTP) RegisterRoutes(r chi.Router) {
	r.Get("/auth/nonce", apphttp.HandleError(h.challenge))
	r.Post("/auth/verify", apphttp.HandleError(h.verify))
	r.With(h.requireSession).Get("/auth/session", apphttp.HandleError(h.session))
	r.Get("/gate-preview", apphttp.HandleError(h.preview))

	r.Route("/admin/gate", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/", apphttp.HandleError(h.getConfig))
		r.Put("/", apphttp.HandleError(h.updateConfig))
	})
}

// challenge handles GET /auth/nonce?pubkey=<base58>.
func (h *HTTP) challenge(w http.ResponseWriter, r *http.Request) error {
	pubkey := r.URL.Query().Get("pubkey")
	if pubkey == "" {
		return apperrors.BadRequestError(nil, "pubkey query parameter is required")
	}
	if !auth.ValidateSolanaAddress(pubkey) {
		return apperrors.BadRequestError(nil, "pubkey is not a valid Solana address")
	}

	challenge, err := h.nonces.Issue(r.Context(), pubkey, h.nonceTTL)
	if err != nil {
		return fmt.Errorf("failed to issue nonce: %w", err)
	}
	metrics.NoncesIssuedTotal.Inc()

	apphttp.WriteJSON(w, http.StatusOK, challenge)
	return nil
}

type verifyRequest struct {
	Pubkey    string `json:"pubkey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type verifyResponse struct {
	Token   string         `json:"token"`
	Details *gate.Decision `json:"details"`
}

type deniedResponse struct {
	Error   string         `json:"error"`
	Reason  string         `json:"reason"`
	Details *gate.Decision `json:"details"`
}

// verify handles POST /auth/verify: consume the nonce, check the signature,
// run the gate and mint a session token when the wallet qualifies.
func (h *HTTP) verify(w http.ResponseWriter, r *http.Request) error {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "pubkey, signature and message are required")
	}

	// The nonce is consumed before the signature check. A failed attempt burns
	// it; replaying the same signed message can never succeed.
	issued, err := h.nonces.Consume(r.Context(), req.Pubkey)
	if err != nil {
		if errors.Is(err, nonce.ErrNonceInvalid) {
			metrics.AuthAttemptsTotal.WithLabelValues("nonce_invalid").Inc()
			return apperrors.UnAuthorizedError(err, "nonce expired or missing")
		}
		return fmt.Errorf("failed to consume nonce: %w", err)
	}

	if !nonce.MessageEmbeds(req.Message, issued) {
		metrics.AuthAttemptsTotal.WithLabelValues("nonce_mismatch").Inc()
		return apperrors.UnAuthorizedError(nil, "message does not contain the issued nonce")
	}

	if !auth.VerifySolanaSignature(req.Pubkey, req.Signature, req.Message) {
		metrics.AuthAttemptsTotal.WithLabelValues("bad_signature").Inc()
		return apperrors.UnAuthorizedError(nil, "signature verification failed")
	}

	decision, err := h.service.Evaluate(r.Context(), req.Pubkey)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		return err
	}

	if !decision.Allowed {
		metrics.AuthAttemptsTotal.WithLabelValues("denied").Inc()
		apphttp.WriteJSON(w, http.StatusForbidden, &deniedResponse{
			Error:   "access denied",
			Reason:  decision.Reason,
			Details: decision,
		})
		return nil
	}

	token, err := h.sessions.Issue(req.Pubkey)
	if err != nil {
		return fmt.Errorf("failed to issue session token: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("allowed").Inc()
	apphttp.WriteJSON(w, http.StatusOK, &verifyResponse{
		Token:   token,
		Details: decision,
	})
	return nil
}

type sessionResponse struct {
	Wallet string `json:"wallet"`
}

// session handles GET /auth/session: echoes the wallet a valid token belongs
// to, so clients can check whether a stored token is still live.
func (h *HTTP) session(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}
	apphttp.WriteJSON(w, http.StatusOK, &sessionResponse{Wallet: wallet})
	return nil
}

// requireSession validates the bearer session token and stores the wallet it
// was issued for on the request context.
func (h *HTTP) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "bearer token required"))
			return
		}
		wallet, err := h.sessions.Validate(token)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid session token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithWallet(r.Context(), wallet)))
	})
}

// preview handles GET /gate-preview
func (h *HTTP) preview(w http.ResponseWriter, r *http.Request) error {
	preview, err := h.service.Preview(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, preview)
	return nil
}

type configResponse struct {
	Enabled      bool             `json:"enabled"`
	Mint         string           `json:"mint,omitempty"`
	MinAmount    *decimal.Decimal `json:"min_amount,omitempty"`
	MinUSD       *decimal.Decimal `json:"min_usd,omitempty"`
	Tolerance    decimal.Decimal  `json:"tolerance"`
	PriceMode    string           `json:"price_mode,omitempty"`
	CoinID       string           `json:"coin_id,omitempty"`
	Platform     string           `json:"platform,omitempty"`
	TokenAddress string           `json:"token_address,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toConfigResponse(cfg *gate.Config) *configResponse {
	return &configResponse{
		Enabled:      cfg.Enabled,
		Mint:         cfg.Mint,
		MinAmount:    cfg.MinAmount,
		MinUSD:       cfg.MinUSD,
		Tolerance:    cfg.Tolerance,
		PriceMode:    string(cfg.PriceMode),
		CoinID:       cfg.CoinID,
		Platform:     cfg.Platform,
		TokenAddress: cfg.TokenAddress,
		UpdatedAt:    cfg.UpdatedAt,
	}
}

// getConfig handles GET /admin/gate
func (h *HTTP) getConfig(w http.ResponseWriter, r *http.Request) error {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
	return nil
}

type updateConfigRequest struct {
	Enabled      bool     `json:"enabled"`
	Mint         string   `json:"mint" validate:"required_if=Enabled true"`
	MinAmount    *float64 `json:"min_amount" validate:"omitempty,gt=0"`
	MinUSD       *float64 `json:"min_usd" validate:"omitempty,gt=0"`
	Tolerance    float64  `json:"tolerance" validate:"gte=0,lt=1"`
	PriceMode    string   `json:"price_mode" validate:"omitempty,oneof=coin_id onchain"`
	CoinID       string   `json:"coin_id"`
	Platform     string   `json:"platform"`
	TokenAddress string   `json:"token_address"`
}

// updateConfig handles PUT /admin/gate
func (h *HTTP) updateConfig(w http.ResponseWriter, r *http.Request) error {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid gate configuration")
	}

	cfg := &gate.Config{
		Enabled:      req.Enabled,
		Mint:         req.Mint,
		Tolerance:    decimal.NewFromFloat(req.Tolerance),
		PriceMode:    gate.PriceMode(req.PriceMode),
		CoinID:       req.CoinID,
		Platform:     req.Platform,
		TokenAddress: req.TokenAddress,
	}
	if req.MinAmount != nil {
		v := decimal.NewFromFloat(*req.MinAmount)
		cfg.MinAmount = &v
	}
	if req.MinUSD != nil {
		v := decimal.NewFromFloat(*req.MinUSD)
		cfg.MinUSD = &v
	}

	updated, err := h.service.UpdateConfig(r.Context(), cfg)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, toConfigResponse(updated))
	return nil
}

// requireAdmin guards the admin endpoints with a static bearer token.
func (h *HTTP) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || h.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "admin token required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
