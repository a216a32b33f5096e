package transfer

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"

	"github.com/brojonat/solxfer/service/solana"
	"github.com/brojonat/solxfer/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// fakeFetcher serves accounts from memory and counts every call.
type fakeFetcher struct {
	mu       sync.Mutex
	accounts map[solanago.PublicKey]*solana.AccountInfo
	balances map[solanago.PublicKey]*solana.TokenBalance
	err      error
	calls    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		accounts: make(map[solanago.PublicKey]*solana.AccountInfo),
		balances: make(map[solanago.PublicKey]*solana.TokenBalance),
	}
}

func (f *fakeFetcher) GetAccount(ctx context.Context, address solanago.PublicKey) (*solana.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[address]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeFetcher) GetTokenBalance(ctx context.Context, address solanago.PublicKey) (*solana.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tb, ok := f.balances[address]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return tb, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// addWallet registers a system owned account.
func (f *fakeFetcher) addWallet(address solanago.PublicKey) {
	f.accounts[address] = &solana.AccountInfo{
		Address:  address,
		Owner:    token.SystemProgramID,
		Lamports: 1_000_000_000,
	}
}

// addTokenAccount registers a token account both as raw account data and as
// a decoded balance.
func (f *fakeFetcher) addTokenAccount(address, owner solanago.PublicKey, mint solana.Mint, amount uint64) *solana.TokenBalance {
	f.accounts[address] = &solana.AccountInfo{
		Address:  address,
		Owner:    mint.ProgramID,
		Lamports: 2039280,
		Data:     tokenAccountData(mint.Address, owner, amount),
	}
	tb := &solana.TokenBalance{
		Address: address,
		Token:   solana.Token{Mint: mint, Symbol: "TEST"},
		Owner:   owner,
		Amount:  amount,
	}
	f.balances[address] = tb
	return tb
}

// fakeExecutor records submitted instructions and returns a fixed outcome.
type fakeExecutor struct {
	status       *solana.TransactionStatus
	err          error
	calls        int
	feePayer     solanago.PublicKey
	instructions []solanago.Instruction
}

func (e *fakeExecutor) Submit(ctx context.Context, feePayer solanago.PublicKey, instructions []solanago.Instruction) (*solana.TransactionStatus, error) {
	e.calls++
	e.feePayer = feePayer
	e.instructions = instructions
	if e.err != nil {
		return nil, e.err
	}
	return e.status, nil
}

func tokenAccountData(mint, owner solanago.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSigner() *solana.KeypairSigner {
	key, err := solanago.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return solana.NewKeypairSigner(key)
}

var (
	legacyMint = solana.Mint{
		Address:   solanago.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		ProgramID: token.LegacyProgramID,
		Decimals:  6,
	}
	extendedMint = solana.Mint{
		Address:   solanago.MustPublicKeyFromBase58("2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo"),
		ProgramID: token.ExtendedProgramID,
		Decimals:  6,
	}
	otherMint = solana.Mint{
		Address:   solanago.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
		ProgramID: token.LegacyProgramID,
		Decimals:  6,
	}
	walletW = solanago.MustPublicKeyFromBase58("DRpbCBMxVnDK7maPM5tGv6MvB3v1sRMC86PZ8okm21hy")
)
