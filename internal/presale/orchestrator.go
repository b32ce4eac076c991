package presale

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/config"
)

// State is the lifecycle position of a purchase attempt.
type State string

const (
	StateIdle              State = "idle"
	StatePreparing         State = "preparing"
	StateAwaitingApproval  State = "awaiting_approval"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StateConfirmed         State = "confirmed"
	StateFailed            State = "failed"
	StateTimedOut          State = "timed_out"
)

// Terminal reports whether a new attempt may start from this state.
func (s State) Terminal() bool {
	switch s {
	case StateIdle, StateConfirmed, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Status is the read-only projection of the current attempt, observed by
// the UI layer.
type Status struct {
	State    State
	Asset    Asset
	TxHash   string
	Err      error
	CanRetry bool
}

// Signer signs transactions for the connected wallet. It is an explicitly
// injected capability; the orchestrator never reaches for ambient wallet
// state.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// TxBackend is the chain surface a purchase drives. *Reader implements it.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	WaitForReceipt(ctx context.Context, hash string) (*chain.Receipt, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	PresaleAddress() common.Address
	StableAddress(asset Asset) common.Address
}

// Orchestrator sequences a purchase: validate, approve when needed,
// estimate gas, submit, await confirmation. At most one non-terminal
// attempt exists at a time.
type Orchestrator struct {
	backend TxBackend
	signer  Signer

	mu     sync.Mutex
	status Status

	onConfirmed func(asset Asset, txHash string)
}

// NewOrchestrator creates an orchestrator for the connected wallet.
// signer may be nil when no wallet is connected; Buy then fails validation.
func NewOrchestrator(backend TxBackend, signer Signer) *Orchestrator {
	return &Orchestrator{backend: backend, signer: signer, status: Status{State: StateIdle}}
}

// OnConfirmed registers the hook run after a confirmed purchase; the caller
// uses it to force-refresh balances, sold totals and the user's purchased
// total.
func (o *Orchestrator) OnConfirmed(fn func(asset Asset, txHash string)) {
	o.onConfirmed = fn
}

// Status returns the current attempt projection.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Retry clears a Failed or TimedOut attempt so Buy may run again. The new
// attempt re-enters the sequence from the top; an already-granted allowance
// is naturally detected again by the allowance check.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.State != StateFailed && o.status.State != StateTimedOut {
		return fmt.Errorf("%w: nothing to retry", ErrValidation)
	}
	if !o.status.CanRetry {
		return fmt.Errorf("%w: fix the input and start a new purchase", ErrValidation)
	}
	o.status = Status{State: StateIdle}
	return nil
}

// Buy executes a purchase of payAmount (in asset display units) against the
// presale contract. referral may be the zero address. The attempt runs
// under a hard wall-clock ceiling of config.TxTimeout.
func (o *Orchestrator) Buy(ctx context.Context, asset Asset, payAmount float64, balance Balance, referral common.Address) error {
	if err := o.begin(asset, payAmount, balance); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, config.TxTimeout)
	defer cancel()

	err := o.run(ctx, asset, payAmount, referral)
	return o.settle(err)
}

// begin performs the entry guards and claims the single attempt slot.
func (o *Orchestrator) begin(asset Asset, payAmount float64, balance Balance) error {
	if o.signer == nil {
		return fmt.Errorf("%w: no wallet connected", ErrValidation)
	}
	if payAmount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !HasSufficientBalance(asset, payAmount, balance) {
		return fmt.Errorf("%w: insufficient %s balance", ErrValidation, asset)
	}
	if asset.Stable() && (o.backend.StableAddress(asset) == common.Address{}) {
		return fmt.Errorf("%w: %s purchases are not available", ErrValidation, asset)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.status.State.Terminal() {
		return fmt.Errorf("%w: a purchase is already in progress", ErrValidation)
	}
	o.status = Status{State: StatePreparing, Asset: asset}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, asset Asset, payAmount float64, referral common.Address) error {
	owner := o.signer.Address()
	presale := o.backend.PresaleAddress()

	var (
		data  []byte
		value *big.Int
	)

	if asset.Stable() {
		token := o.backend.StableAddress(asset)
		decimals, err := o.backend.TokenDecimals(ctx, token)
		if err != nil {
			return classify(ErrConnection, err)
		}
		amount, err := chain.FloatToUnits(strconv.FormatFloat(payAmount, 'f', -1, 64), decimals)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		allowance, err := o.backend.Allowance(ctx, token, owner, presale)
		if err != nil {
			return classify(ErrConnection, err)
		}
		if allowance.Cmp(amount) < 0 {
			o.setState(StateAwaitingApproval)
			// Approval is sized exactly to this purchase, never unlimited.
			approveData := calldata(selApprove, encodeAddress(presale), encodeUint(amount))
			if _, err := o.sendAndConfirm(ctx, token, approveData, nil); err != nil {
				return classify(ErrAllowance, err)
			}
		}

		data = calldata(asset.buySelector(), encodeUint(amount), encodeAddress(referral))
		value = nil
	} else {
		wei, err := chain.EtherToWei(strconv.FormatFloat(payAmount, 'f', -1, 64))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		data = calldata(selBuyWithETH, encodeAddress(referral))
		value = wei
	}

	o.setState(StateAwaitingSignature)
	hash, err := o.sendAndConfirm(ctx, presale, data, value)
	if hash != "" {
		o.setTxHash(hash)
	}
	return err
}

// sendAndConfirm estimates, signs, submits and awaits one transaction.
func (o *Orchestrator) sendAndConfirm(ctx context.Context, to common.Address, data []byte, value *big.Int) (string, error) {
	from := o.signer.Address()

	gas, err := o.backend.EstimateGas(ctx, from, to, data, value)
	if err != nil {
		return "", classify(ErrGasEstimation, err)
	}
	gas = gas * (100 + config.GasBufferPct) / 100

	chainID, err := o.backend.ChainID(ctx)
	if err != nil {
		return "", classify(ErrConnection, err)
	}
	nonce, err := o.backend.PendingNonce(ctx, from)
	if err != nil {
		return "", classify(ErrConnection, err)
	}
	gasPrice, err := o.backend.GasPrice(ctx)
	if err != nil {
		return "", classify(ErrConnection, err)
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	raw, err := o.signer.SignTx(tx, chainID)
	if err != nil {
		return "", classify(ErrSubmission, err)
	}

	hash, err := o.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", classify(ErrSubmission, err)
	}
	o.setState(StateSubmitted)

	if _, err := o.backend.WaitForReceipt(ctx, hash); err != nil {
		return hash, classify(ErrConfirmation, err)
	}
	return hash, nil
}

// settle records the attempt's terminal state and returns the settled error,
// so the caller and the status projection always agree.
func (o *Orchestrator) settle(err error) error {
	o.mu.Lock()
	asset := o.status.Asset
	hash := o.status.TxHash
	switch {
	case err == nil:
		o.status.State = StateConfirmed
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout):
		o.status.State = StateTimedOut
		o.status.Err = fmt.Errorf("%w: %v", ErrTimeout, err)
		o.status.CanRetry = true
	default:
		o.status.State = StateFailed
		o.status.Err = err
		o.status.CanRetry = Retryable(err)
	}
	settled := o.status.Err
	o.mu.Unlock()

	if err == nil && o.onConfirmed != nil {
		o.onConfirmed(asset, hash)
	}
	return settled
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.status.State = s
	o.mu.Unlock()
}

func (o *Orchestrator) setTxHash(hash string) {
	o.mu.Lock()
	o.status.TxHash = hash
	o.mu.Unlock()
}
