package token

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSource    = solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	testMint      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testDest      = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testAuthority = solana.MustPublicKeyFromBase58("HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH")
)

func TestProgramIDs(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", LegacyProgramID.String())
	assert.Equal(t, "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb", ExtendedProgramID.String())
	assert.Equal(t, "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", AssociatedTokenAccountProgramID.String())
}

func TestProgramFor(t *testing.T) {
	p, err := ProgramFor(LegacyProgramID)
	require.NoError(t, err)
	assert.Equal(t, Legacy, p)
	assert.True(t, p.ID().Equals(LegacyProgramID))

	p, err = ProgramFor(ExtendedProgramID)
	require.NoError(t, err)
	assert.Equal(t, Extended, p)
	assert.True(t, p.ID().Equals(ExtendedProgramID))
}

func TestProgramFor_Unsupported(t *testing.T) {
	for _, id := range []solana.PublicKey{SystemProgramID, AssociatedTokenAccountProgramID, {}} {
		_, err := ProgramFor(id)
		assert.ErrorIs(t, err, ErrUnsupportedProgram, "program %s", id)
	}
}

func TestProgram_ID_PanicsOnZeroValue(t *testing.T) {
	var p Program
	assert.Panics(t, func() { p.ID() })
}

func TestTransferChecked(t *testing.T) {
	for _, p := range Programs() {
		t.Run(p.String(), func(t *testing.T) {
			ix, err := p.TransferChecked(testSource, testMint, testDest, testAuthority, 1500000, 6)
			require.NoError(t, err)

			assert.True(t, ix.ProgramID().Equals(p.ID()))

			data, err := ix.Data()
			require.NoError(t, err)
			require.Len(t, data, 10)
			assert.Equal(t, uint8(12), data[0])
			assert.Equal(t, uint64(1500000), binary.LittleEndian.Uint64(data[1:9]))
			assert.Equal(t, uint8(6), data[9])

			accounts := ix.Accounts()
			require.Len(t, accounts, 4)
			assert.True(t, accounts[0].PublicKey.Equals(testSource))
			assert.True(t, accounts[0].IsWritable)
			assert.True(t, accounts[1].PublicKey.Equals(testMint))
			assert.False(t, accounts[1].IsWritable)
			assert.True(t, accounts[2].PublicKey.Equals(testDest))
			assert.True(t, accounts[2].IsWritable)
			assert.True(t, accounts[3].PublicKey.Equals(testAuthority))
			assert.True(t, accounts[3].IsSigner)
		})
	}
}

func TestCreateIdempotent(t *testing.T) {
	for _, p := range Programs() {
		t.Run(p.String(), func(t *testing.T) {
			ata, err := FindAssociatedAddress(testDest, testMint, p.ID())
			require.NoError(t, err)

			ix := p.CreateIdempotent(testAuthority, ata, testDest, testMint)
			assert.True(t, ix.ProgramID().Equals(AssociatedTokenAccountProgramID))

			data, err := ix.Data()
			require.NoError(t, err)
			assert.Equal(t, []byte{1}, data)

			accounts := ix.Accounts()
			require.Len(t, accounts, 6)
			assert.True(t, accounts[0].PublicKey.Equals(testAuthority))
			assert.True(t, accounts[0].IsSigner)
			assert.True(t, accounts[0].IsWritable)
			assert.True(t, accounts[1].PublicKey.Equals(ata))
			assert.True(t, accounts[1].IsWritable)
			assert.True(t, accounts[2].PublicKey.Equals(testDest))
			assert.True(t, accounts[3].PublicKey.Equals(testMint))
			assert.True(t, accounts[4].PublicKey.Equals(SystemProgramID))
			assert.True(t, accounts[5].PublicKey.Equals(p.ID()))
		})
	}
}

func TestFindAssociatedAddress(t *testing.T) {
	t.Run("legacy matches solana-go derivation", func(t *testing.T) {
		want, _, err := solana.FindAssociatedTokenAddress(testDest, testMint)
		require.NoError(t, err)

		got, err := FindAssociatedAddress(testDest, testMint, LegacyProgramID)
		require.NoError(t, err)
		assert.True(t, want.Equals(got))
	})

	t.Run("deterministic and program specific", func(t *testing.T) {
		a1, err := FindAssociatedAddress(testDest, testMint, ExtendedProgramID)
		require.NoError(t, err)
		a2, err := FindAssociatedAddress(testDest, testMint, ExtendedProgramID)
		require.NoError(t, err)
		legacy, err := FindAssociatedAddress(testDest, testMint, LegacyProgramID)
		require.NoError(t, err)

		assert.True(t, a1.Equals(a2))
		assert.False(t, a1.Equals(legacy))
	})
}
