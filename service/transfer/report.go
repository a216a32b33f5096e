package transfer

import (
	"github.com/brojonat/solxfer/service/solana"
)

// Report formats a submission outcome as a single line.
func Report(status *solana.TransactionStatus) string {
	if status.Success {
		return status.Signature.String() + " success"
	}
	return status.Signature.String() + " fail: " + status.Err
}
