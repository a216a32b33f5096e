package transfer

import (
	"encoding/binary"
	"fmt"

	"github.com/brojonat/solxfer/service/token"
	solanago "github.com/gagliardetto/solana-go"
)

// Instruction types rendered by Describe
const (
	systemTransferInstruction       = uint32(2)
	tokenTransferCheckedInstruction = uint8(12)
	ataCreateInstruction            = uint8(0)
	ataCreateIdempotentInstruction  = uint8(1)
)

// Describe renders instructions as one human readable line each, for dry runs.
func Describe(instructions []solanago.Instruction) ([]string, error) {
	lines := make([]string, 0, len(instructions))
	for i, ix := range instructions {
		data, err := ix.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to encode instruction %d: %w", i, err)
		}
		lines = append(lines, fmt.Sprintf("%d: %s", i, describeInstruction(ix.ProgramID(), ix.Accounts(), data)))
	}
	return lines, nil
}

func describeInstruction(programID solanago.PublicKey, accounts []*solanago.AccountMeta, data []byte) string {
	key := func(i int) string {
		if i < len(accounts) {
			return accounts[i].PublicKey.String()
		}
		return "?"
	}

	switch {
	case programID.Equals(token.SystemProgramID):
		// [0..4] instruction type (u32), [4..12] lamports (u64)
		if len(data) >= 12 && binary.LittleEndian.Uint32(data[0:4]) == systemTransferInstruction {
			return fmt.Sprintf("system transfer %d lamports from %s to %s",
				binary.LittleEndian.Uint64(data[4:12]), key(0), key(1))
		}

	case programID.Equals(token.AssociatedTokenAccountProgramID):
		// accounts: [payer, account, owner, mint, system, token program]
		if len(data) == 0 || data[0] == ataCreateInstruction {
			return fmt.Sprintf("create associated account %s for owner %s mint %s (%s)", key(1), key(2), key(3), key(5))
		}
		if data[0] == ataCreateIdempotentInstruction {
			return fmt.Sprintf("create associated account %s idempotent for owner %s mint %s (%s)", key(1), key(2), key(3), key(5))
		}

	default:
		program, err := token.ProgramFor(programID)
		if err != nil {
			break
		}
		// [0] instruction type, [1..9] amount (u64), [9] decimals (u8)
		// accounts: [source, mint, destination, authority]
		if len(data) >= 10 && data[0] == tokenTransferCheckedInstruction {
			return fmt.Sprintf("%s transferChecked %d (decimals %d) from %s to %s mint %s authority %s",
				program, binary.LittleEndian.Uint64(data[1:9]), data[9], key(0), key(2), key(1), key(3))
		}
	}

	return fmt.Sprintf("program %s with %d accounts, %d data bytes", programID, len(accounts), len(data))
}
