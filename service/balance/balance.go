package balance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/brojonat/solxfer/service/amount"
	"github.com/brojonat/solxfer/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Fetcher defines the reads needed to list balances.
// This allows for easy mocking in tests.
type Fetcher interface {
	GetNativeBalance(ctx context.Context, address solanago.PublicKey) (uint64, error)
	GetTokenBalancesByOwner(ctx context.Context, owner solanago.PublicKey) ([]*solana.TokenBalance, error)
}

// Line is one balance entry.
type Line struct {
	Symbol    string          `json:"symbol"`
	Address   string          `json:"address"`
	Mint      string          `json:"mint,omitempty"`
	ProgramID string          `json:"program_id,omitempty"`
	Raw       uint64          `json:"raw"`
	Decimals  uint8           `json:"decimals"`
	Amount    decimal.Decimal `json:"amount"`
}

// String renders the line as "<symbol>: <address>: <amount>".
func (l Line) String() string {
	return fmt.Sprintf("%s: %s: %s", l.Symbol, l.Address, l.Amount.String())
}

// Report lists the SOL balance of an owner followed by its token accounts.
type Report struct {
	Owner  string `json:"owner"`
	SOL    Line   `json:"sol"`
	Tokens []Line `json:"tokens"`
}

// Lines renders the report, SOL first.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.Tokens)+1)
	lines = append(lines, r.SOL.String())
	for _, t := range r.Tokens {
		lines = append(lines, t.String())
	}
	return lines
}

// Service lists balances.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewService creates a new balance Service.
func NewService(fetcher Fetcher, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Balances returns the SOL balance of owner and every token account it owns
// under either token program. Tokens are ordered by symbol, then address.
func (s *Service) Balances(ctx context.Context, owner solanago.PublicKey) (*Report, error) {
	lamports, err := s.fetcher.GetNativeBalance(ctx, owner)
	if err != nil {
		return nil, err
	}

	balances, err := s.fetcher.GetTokenBalancesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Owner: owner.String(),
		SOL: Line{
			Symbol:   "SOL",
			Address:  owner.String(),
			Raw:      lamports,
			Decimals: amount.NativeDecimals,
			Amount:   amount.FromRaw(amount.NativeDecimals, lamports),
		},
		Tokens: make([]Line, 0, len(balances)),
	}

	for _, b := range balances {
		mint := b.Token.Mint
		report.Tokens = append(report.Tokens, Line{
			Symbol:    b.Token.Symbol,
			Address:   b.Address.String(),
			Mint:      mint.Address.String(),
			ProgramID: mint.ProgramID.String(),
			Raw:       b.Amount,
			Decimals:  mint.Decimals,
			Amount:    amount.FromRaw(mint.Decimals, b.Amount),
		})
	}
	sort.SliceStable(report.Tokens, func(i, j int) bool {
		if report.Tokens[i].Symbol != report.Tokens[j].Symbol {
			return report.Tokens[i].Symbol < report.Tokens[j].Symbol
		}
		return report.Tokens[i].Address < report.Tokens[j].Address
	})

	s.logger.DebugContext(ctx, "listed balances",
		"owner", report.Owner,
		"lamports", lamports,
		"tokens", len(report.Tokens),
	)
	return report, nil
}
