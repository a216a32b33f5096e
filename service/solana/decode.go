package solana

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	splToken "github.com/gagliardetto/solana-go/programs/token"
)

// Account layout sizes shared by both token programs. Token-2022 accounts
// carrying extensions are longer and store an account type byte at offset
// tokenAccountSize.
const (
	mintSize         = 82
	tokenAccountSize = 165

	extendedAccountTypeMint    = byte(1)
	extendedAccountTypeAccount = byte(2)
)

// ErrInvalidAccountData is returned when account data does not decode as
// the expected token program structure.
var ErrInvalidAccountData = errors.New("unexpected account data")

// decodeTokenAccount decodes raw token account data.
func decodeTokenAccount(data []byte) (*splToken.Account, error) {
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("%w: token account data too short: %d bytes", ErrInvalidAccountData, len(data))
	}
	if len(data) > tokenAccountSize && data[tokenAccountSize] != extendedAccountTypeAccount {
		return nil, fmt.Errorf("%w: account type %d is not a token account", ErrInvalidAccountData, data[tokenAccountSize])
	}

	var account splToken.Account
	if err := bin.NewBinDecoder(data[:tokenAccountSize]).Decode(&account); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if account.State == splToken.Uninitialized {
		return nil, fmt.Errorf("%w: token account is not initialized", ErrInvalidAccountData)
	}
	return &account, nil
}

// decodeMint decodes raw mint data.
func decodeMint(data []byte) (*splToken.Mint, error) {
	if len(data) < mintSize {
		return nil, fmt.Errorf("%w: mint data too short: %d bytes", ErrInvalidAccountData, len(data))
	}
	if len(data) > tokenAccountSize && data[tokenAccountSize] != extendedAccountTypeMint {
		return nil, fmt.Errorf("%w: account type %d is not a mint", ErrInvalidAccountData, data[tokenAccountSize])
	}
	if len(data) == tokenAccountSize {
		return nil, fmt.Errorf("%w: account is a token account, not a mint", ErrInvalidAccountData)
	}

	var mint splToken.Mint
	if err := bin.NewBinDecoder(data[:mintSize]).Decode(&mint); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("%w: mint is not initialized", ErrInvalidAccountData)
	}
	return &mint, nil
}
