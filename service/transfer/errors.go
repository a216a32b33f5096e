package transfer

import (
	"errors"

	"github.com/brojonat/solxfer/service/amount"
	"github.com/brojonat/solxfer/service/solana"
	"github.com/brojonat/solxfer/service/token"
)

// Errors returned by Transfer. Every error other than ErrSubmissionFailed is
// detected before anything is submitted.
var (
	ErrMissingSourceSpecifier = errors.New("either a source token account or a token mint must be provided")
	ErrConflictingSource      = errors.New("a native transfer cannot name a source token account or mint")
	ErrAccountNotFound        = solana.ErrAccountNotFound
	ErrNoTokenAccount         = errors.New("no token account for mint")
	ErrProgramMismatch        = errors.New("destination belongs to a different token program")
	ErrMintMismatch           = errors.New("destination holds a different token")
	ErrUnsupportedProgram     = token.ErrUnsupportedProgram
	ErrInvalidAmount          = amount.ErrInvalidAmount
	ErrSubmissionFailed       = errors.New("submission failed")
)

// reason maps an error onto a short label for metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingSourceSpecifier):
		return "missing_source"
	case errors.Is(err, ErrConflictingSource):
		return "conflicting_source"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrNoTokenAccount):
		return "no_token_account"
	case errors.Is(err, ErrProgramMismatch):
		return "program_mismatch"
	case errors.Is(err, ErrMintMismatch):
		return "mint_mismatch"
	case errors.Is(err, ErrUnsupportedProgram):
		return "unsupported_program"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "other"
	}
}
