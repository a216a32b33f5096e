package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solxfer/service/metrics"
	"github.com/brojonat/solxfer/service/token"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned when an address holds no account, or holds
// one that does not decode as the requested structure.
var ErrAccountNotFound = errors.New("account not found")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, accounts []solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetMultipleAccountsResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, programID solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountsResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Client provides account lookups on top of the RPC layer.
// It wraps the RPC client with domain-specific operations.
type Client struct {
	rpc        RPCClient
	logger     *slog.Logger
	metrics    *metrics.Metrics
	endpoint   string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
	commitment rpc.CommitmentType
	symbols    map[string]string
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpcClient,
		logger:     logger,
		metrics:    m,
		endpoint:   endpoint,
		commitment: rpc.CommitmentConfirmed,
		symbols:    map[string]string{},
	}
}

// WithCommitment sets the commitment used for reads.
func (c *Client) WithCommitment(commitment rpc.CommitmentType) *Client {
	c.commitment = commitment
	return c
}

// WithSymbols sets the mint address -> symbol table used to label tokens.
func (c *Client) WithSymbols(symbols map[string]string) *Client {
	for mint, symbol := range symbols {
		c.symbols[mint] = symbol
	}
	return c
}

// RPC exposes the underlying RPC client, e.g. for building an Executor.
func (c *Client) RPC() RPCClient {
	return c.rpc
}

// Symbol returns the configured symbol for a mint, or a shortened address.
func (c *Client) Symbol(mint solana.PublicKey) string {
	if symbol, ok := c.symbols[mint.String()]; ok {
		return symbol
	}
	s := mint.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}

func (c *Client) record(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// GetAccount fetches the raw account at address.
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, address, c.commitment)
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (out == nil || out.Value == nil)) {
		c.record("GetAccountInfo", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	c.record("GetAccountInfo", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get account info",
			"address", address.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}

	c.logger.DebugContext(ctx, "fetched account",
		"address", address.String(),
		"owner", out.Value.Owner.String(),
		"lamports", out.Value.Lamports,
	)
	return accountToDomain(address, out.Value), nil
}

// GetAccounts fetches several accounts in one call. Missing accounts are nil
// in the result, which is index-aligned with addresses.
func (c *Client) GetAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*AccountInfo, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	start := time.Now()
	out, err := c.rpc.GetMultipleAccounts(ctx, addresses, c.commitment)
	c.record("GetMultipleAccounts", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get multiple accounts",
			"count", len(addresses),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get %d accounts: %w", len(addresses), err)
	}
	if out == nil || len(out.Value) != len(addresses) {
		return nil, fmt.Errorf("getMultipleAccounts returned %d accounts for %d addresses", lenAccounts(out), len(addresses))
	}

	accounts := make([]*AccountInfo, len(addresses))
	for i, acc := range out.Value {
		if acc == nil {
			continue
		}
		accounts[i] = accountToDomain(addresses[i], acc)
	}
	return accounts, nil
}

// GetMint fetches and decodes a mint.
func (c *Client) GetMint(ctx context.Context, address solana.PublicKey) (*Mint, error) {
	acc, err := c.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return mintFromAccount(acc)
}

// GetTokenBalance fetches a token account together with its mint.
// A missing account, or one that is not a token account, yields ErrAccountNotFound.
func (c *Client) GetTokenBalance(ctx context.Context, address solana.PublicKey) (*TokenBalance, error) {
	acc, err := c.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	if _, err := token.ProgramFor(acc.Owner); err != nil {
		return nil, fmt.Errorf("%w: %s is owned by %s, not a token program", ErrAccountNotFound, address, acc.Owner)
	}
	decoded, err := decodeTokenAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAccountNotFound, address, err)
	}

	mint, err := c.GetMint(ctx, decoded.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get mint %s for token account %s: %w", decoded.Mint, address, err)
	}
	if !mint.ProgramID.Equals(acc.Owner) {
		return nil, fmt.Errorf("%w: token account %s is owned by %s but its mint by %s", ErrInvalidAccountData, address, acc.Owner, mint.ProgramID)
	}

	return &TokenBalance{
		Address: address,
		Token:   Token{Mint: *mint, Symbol: c.Symbol(mint.Address)},
		Owner:   decoded.Owner,
		Amount:  decoded.Amount,
	}, nil
}

// DecodeTokenAccount decodes an already fetched account as a token account
// without fetching its mint.
func DecodeTokenAccount(acc *AccountInfo) (mint, owner solana.PublicKey, amount uint64, err error) {
	decoded, err := decodeTokenAccount(acc.Data)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, 0, err
	}
	return decoded.Mint, decoded.Owner, decoded.Amount, nil
}

// GetNativeBalance returns the lamport balance of address.
func (c *Client) GetNativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, address, c.commitment)
	c.record("GetBalance", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", address, err)
	}
	return out.Value, nil
}

// GetTokenBalancesByOwner lists every token account owned by owner under
// both token programs. Mints are fetched in a single batch.
func (c *Client) GetTokenBalancesByOwner(ctx context.Context, owner solana.PublicKey) ([]*TokenBalance, error) {
	type raw struct {
		address solana.PublicKey
		program solana.PublicKey
		mint    solana.PublicKey
		owner   solana.PublicKey
		amount  uint64
	}

	var accounts []raw
	for _, p := range token.Programs() {
		start := time.Now()
		out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, p.ID(), c.commitment)
		c.record("GetTokenAccountsByOwner", start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s accounts of %s: %w", p, owner, err)
		}
		for _, ta := range out.Value {
			if ta == nil || ta.Account.Data == nil {
				continue
			}
			decoded, err := decodeTokenAccount(ta.Account.Data.GetBinary())
			if err != nil {
				c.logger.WarnContext(ctx, "skipping undecodable token account",
					"address", ta.Pubkey.String(),
					"error", err,
				)
				continue
			}
			accounts = append(accounts, raw{
				address: ta.Pubkey,
				program: p.ID(),
				mint:    decoded.Mint,
				owner:   decoded.Owner,
				amount:  decoded.Amount,
			})
		}
	}

	// Dedupe mints before the batch lookup.
	mintIndex := make(map[solana.PublicKey]int)
	var mintAddrs []solana.PublicKey
	for _, a := range accounts {
		if _, ok := mintIndex[a.mint]; !ok {
			mintIndex[a.mint] = len(mintAddrs)
			mintAddrs = append(mintAddrs, a.mint)
		}
	}
	mintAccounts, err := c.GetAccounts(ctx, mintAddrs)
	if err != nil {
		return nil, err
	}

	balances := make([]*TokenBalance, 0, len(accounts))
	for _, a := range accounts {
		acc := mintAccounts[mintIndex[a.mint]]
		if acc == nil {
			c.logger.WarnContext(ctx, "mint not found for token account",
				"address", a.address.String(),
				"mint", a.mint.String(),
			)
			continue
		}
		mint, err := mintFromAccount(acc)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping token account with invalid mint",
				"address", a.address.String(),
				"mint", a.mint.String(),
				"error", err,
			)
			continue
		}
		balances = append(balances, &TokenBalance{
			Address: a.address,
			Token:   Token{Mint: *mint, Symbol: c.Symbol(mint.Address)},
			Owner:   a.owner,
			Amount:  a.amount,
		})
	}

	c.logger.DebugContext(ctx, "fetched token balances",
		"owner", owner.String(),
		"count", len(balances),
	)
	return balances, nil
}

func mintFromAccount(acc *AccountInfo) (*Mint, error) {
	if _, err := token.ProgramFor(acc.Owner); err != nil {
		return nil, fmt.Errorf("mint %s: %w", acc.Address, err)
	}
	decoded, err := decodeMint(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", acc.Address, err)
	}
	return &Mint{
		Address:   acc.Address,
		ProgramID: acc.Owner,
		Decimals:  decoded.Decimals,
	}, nil
}

func accountToDomain(address solana.PublicKey, acc *rpc.Account) *AccountInfo {
	info := &AccountInfo{
		Address:  address,
		Owner:    acc.Owner,
		Lamports: acc.Lamports,
	}
	if acc.Data != nil {
		info.Data = acc.Data.GetBinary()
	}
	return info
}

func lenAccounts(out *rpc.GetMultipleAccountsResult) int {
	if out == nil {
		return 0
	}
	return len(out.Value)
}
