package solana

import (
	"github.com/gagliardetto/solana-go"
)

// AccountInfo is the raw state of an on-chain account.
// Owner is the owning program, not the wallet that controls a token account.
type AccountInfo struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Mint describes a token type. It is immutable once fetched.
type Mint struct {
	Address   solana.PublicKey
	ProgramID solana.PublicKey
	Decimals  uint8
}

// Token is a Mint plus a human readable symbol.
type Token struct {
	Mint   Mint
	Symbol string
}

// TokenBalance is a token account: an address holding units of Token on
// behalf of Owner.
type TokenBalance struct {
	Address solana.PublicKey
	Token   Token
	Owner   solana.PublicKey
	Amount  uint64
}

// TransactionStatus is the outcome of one submitted transaction.
type TransactionStatus struct {
	Signature solana.Signature
	Success   bool
	Err       string // ledger rejection reason, verbatim; empty on success
}
