package presale

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/rpc"
)

// Purchase error taxonomy. Every chain or network failure inside a purchase
// attempt is mapped to exactly one of these before it reaches the caller.
var (
	ErrConnection    = errors.New("no reachable chain endpoint")
	ErrValidation    = errors.New("invalid purchase input")
	ErrAllowance     = errors.New("token approval failed")
	ErrUserRejected  = errors.New("signature request rejected")
	ErrGasEstimation = errors.New("gas estimation failed")
	ErrSubmission    = errors.New("transaction rejected by node")
	ErrConfirmation  = errors.New("error while awaiting confirmation")
	ErrTimeout       = errors.New("transaction not confirmed within time limit")
)

// Wallet-level rejection code used by browser wallets (EIP-1193).
const userRejectedCode = 4001

// IsUserRejection reports whether err is a wallet-level signature rejection,
// detected by the conventional code or message substring.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == userRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied")
}

// classify wraps a raw error from phase into its taxonomy sentinel.
// phase is one of the sentinels above, chosen by where the failure occurred.
func classify(phase error, err error) error {
	switch {
	case err == nil:
		return nil
	case IsUserRejection(err):
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	case errors.Is(err, rpc.ErrNoHealthyRPC):
		return fmt.Errorf("%w: %w", ErrConnection, err)
	default:
		return fmt.Errorf("%w: %w", phase, err)
	}
}

// Retryable reports whether a failed attempt may be retried as-is.
// Validation failures require the user to fix the input first.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation)
}
