// Package solana queries token balances from a Solana RPC node.
package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/tokengate/middleware/pkg/config"
)

// ErrBalanceUnavailable wraps RPC failures. A wrapped error means the balance
// is unknown, which callers must keep distinct from a balance of zero.
var ErrBalanceUnavailable = errors.New("token balance unavailable")

// BalanceOracle reports a wallet's holdings of a specific mint.
type BalanceOracle interface {
	TokenAmount(ctx context.Context, owner, mint string) (decimal.Decimal, error)
}

// Client is the RPC-backed balance oracle.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// NewClient creates a Solana RPC client from configuration
func NewClient(cfg *config.SolanaConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		rpc:     rpc.New(cfg.RPCURL),
		timeout: timeout,
	}
}

// parsedTokenAccount is the jsonParsed shape of an SPL token account, reduced
// to the fields the gate needs.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			TokenAmount struct {
				UIAmountString string `json:"uiAmountString"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// TokenAmount sums the human-readable balances of every token account the
// owner holds for the given mint. An owner may hold several accounts for the
// same mint; no accounts at all means zero.
func (c *Client) TokenAmount(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid owner address %q: %w", owner, err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid mint address %q: %w", mint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		ownerKey,
		&rpc.GetTokenAccountsConfig{Mint: mintKey.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: getTokenAccountsByOwner: %v", ErrBalanceUnavailable, err)
	}

	total := decimal.Zero
	for _, account := range out.Value {
		if account == nil || account.Account.Data == nil {
			continue
		}
		var parsed parsedTokenAccount
		if err := json.Unmarshal(account.Account.Data.GetRawJSON(), &parsed); err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed token account: %v", ErrBalanceUnavailable, err)
		}
		ui := parsed.Parsed.Info.TokenAmount.UIAmountString
		if ui == "" {
			continue
		}
		amount, err := decimal.NewFromString(ui)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: malformed token amount %q: %v", ErrBalanceUnavailable, ui, err)
		}
		total = total.Add(amount)
	}
	return total, nil
}
