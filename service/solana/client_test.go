package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/brojonat/solxfer/service/token"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	mu            sync.Mutex
	accounts      map[solana.PublicKey]*rpc.Account
	tokenAccounts map[solana.PublicKey][]*rpc.TokenAccount // keyed by program
	balance       uint64
	blockhash     solana.Hash
	sendErr       error
	statuses      []*rpc.SignatureStatusesResult
	statusCalls   int
	sent          []*solana.Transaction
	err           error
}

func newMockRPCClient() *mockRPCClient {
	return &mockRPCClient{
		accounts:      map[solana.PublicKey]*rpc.Account{},
		tokenAccounts: map[solana.PublicKey][]*rpc.TokenAccount{},
	}
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetAccountInfoResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	acc, ok := m.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (m *mockRPCClient) GetMultipleAccounts(ctx context.Context, accounts []solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetMultipleAccountsResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(accounts))}
	for i, a := range accounts {
		out.Value[i] = m.accounts[a]
	}
	return out, nil
}

func (m *mockRPCClient) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func (m *mockRPCClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, programID solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountsResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetTokenAccountsResult{Value: m.tokenAccounts[programID]}, nil
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: m.blockhash}}, nil
}

func (m *mockRPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	m.sent = append(m.sent, tx)
	return tx.Signatures[0], nil
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.statusCalls
	m.statusCalls++
	if idx >= len(m.statuses) {
		idx = len(m.statuses) - 1
	}
	if idx < 0 {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{m.statuses[idx]}}, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", nil, logger)
}

// mintData encodes an initialized mint with the given decimals.
func mintData(decimals uint8) []byte {
	data := make([]byte, mintSize)
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000_000)
	data[44] = decimals
	data[45] = 1
	return data
}

// tokenAccountData encodes an initialized token account.
func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}

func rpcAccount(owner solana.PublicKey, data []byte) *rpc.Account {
	return &rpc.Account{
		Owner:    owner,
		Lamports: 2039280,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

var (
	testOwner   = solana.MustPublicKeyFromBase58("HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH")
	testMint    = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testAccount = solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
)

func TestGetAccount_NotFound(t *testing.T) {
	client := newTestClient(newMockRPCClient())

	_, err := client.GetAccount(context.Background(), testAccount)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetAccount_RPCError(t *testing.T) {
	mock := newMockRPCClient()
	mock.err = errors.New("connection refused")
	client := newTestClient(mock)

	_, err := client.GetAccount(context.Background(), testAccount)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetTokenBalance(t *testing.T) {
	for _, p := range token.Programs() {
		t.Run(p.String(), func(t *testing.T) {
			mock := newMockRPCClient()
			mock.accounts[testMint] = rpcAccount(p.ID(), mintData(6))
			mock.accounts[testAccount] = rpcAccount(p.ID(), tokenAccountData(testMint, testOwner, 1234))
			client := newTestClient(mock).WithSymbols(map[string]string{testMint.String(): "USDC"})

			tb, err := client.GetTokenBalance(context.Background(), testAccount)
			require.NoError(t, err)

			assert.True(t, tb.Address.Equals(testAccount))
			assert.True(t, tb.Owner.Equals(testOwner))
			assert.Equal(t, uint64(1234), tb.Amount)
			assert.True(t, tb.Token.Mint.Address.Equals(testMint))
			assert.True(t, tb.Token.Mint.ProgramID.Equals(p.ID()))
			assert.Equal(t, uint8(6), tb.Token.Mint.Decimals)
			assert.Equal(t, "USDC", tb.Token.Symbol)
		})
	}
}

func TestGetTokenBalance_NotATokenAccount(t *testing.T) {
	t.Run("wallet", func(t *testing.T) {
		mock := newMockRPCClient()
		mock.accounts[testAccount] = rpcAccount(token.SystemProgramID, nil)
		client := newTestClient(mock)

		_, err := client.GetTokenBalance(context.Background(), testAccount)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("mint instead of account", func(t *testing.T) {
		mock := newMockRPCClient()
		mock.accounts[testAccount] = rpcAccount(token.LegacyProgramID, mintData(6))
		client := newTestClient(mock)

		_, err := client.GetTokenBalance(context.Background(), testAccount)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("uninitialized", func(t *testing.T) {
		data := tokenAccountData(testMint, testOwner, 0)
		data[108] = 0
		mock := newMockRPCClient()
		mock.accounts[testAccount] = rpcAccount(token.LegacyProgramID, data)
		client := newTestClient(mock)

		_, err := client.GetTokenBalance(context.Background(), testAccount)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestDecodeTokenAccount_ExtendedWithExtensions(t *testing.T) {
	data := append(tokenAccountData(testMint, testOwner, 99), extendedAccountTypeAccount, 0, 0)
	mint, owner, amount, err := DecodeTokenAccount(&AccountInfo{Data: data})
	require.NoError(t, err)
	assert.True(t, mint.Equals(testMint))
	assert.True(t, owner.Equals(testOwner))
	assert.Equal(t, uint64(99), amount)

	// An extended mint padded to the account length must not decode as an account.
	mintWithExt := append(make([]byte, tokenAccountSize), extendedAccountTypeMint)
	copy(mintWithExt, mintData(2))
	_, _, _, err = DecodeTokenAccount(&AccountInfo{Data: mintWithExt})
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	m, err := decodeMint(mintWithExt)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), m.Decimals)
}

func TestGetTokenBalancesByOwner(t *testing.T) {
	otherMint := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	legacyAcc := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	mock := newMockRPCClient()
	mock.accounts[testMint] = rpcAccount(token.LegacyProgramID, mintData(6))
	mock.accounts[otherMint] = rpcAccount(token.ExtendedProgramID, mintData(9))
	mock.tokenAccounts[token.LegacyProgramID] = []*rpc.TokenAccount{
		{Pubkey: legacyAcc, Account: *rpcAccount(token.LegacyProgramID, tokenAccountData(testMint, testOwner, 5))},
	}
	mock.tokenAccounts[token.ExtendedProgramID] = []*rpc.TokenAccount{
		{Pubkey: testAccount, Account: *rpcAccount(token.ExtendedProgramID, tokenAccountData(otherMint, testOwner, 7))},
		{Pubkey: testMint, Account: *rpcAccount(token.ExtendedProgramID, []byte{1, 2, 3})},
	}
	client := newTestClient(mock)

	balances, err := client.GetTokenBalancesByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	assert.True(t, balances[0].Address.Equals(legacyAcc))
	assert.Equal(t, uint8(6), balances[0].Token.Mint.Decimals)
	assert.Equal(t, uint64(5), balances[0].Amount)

	assert.True(t, balances[1].Address.Equals(testAccount))
	assert.True(t, balances[1].Token.Mint.ProgramID.Equals(token.ExtendedProgramID))
	assert.Equal(t, uint8(9), balances[1].Token.Mint.Decimals)
	assert.Equal(t, "9WzD..AWWM", balances[1].Token.Symbol)
}

func TestGetNativeBalance(t *testing.T) {
	mock := newMockRPCClient()
	mock.balance = 5_000_000_000
	client := newTestClient(mock)

	lamports, err := client.GetNativeBalance(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), lamports)
}
