package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"fundscope/internal/model"
)

// Transactor submits state-changing router transactions and waits for their
// confirmation.
type Transactor struct {
	contract *bind.BoundContract
	backend  *ethclient.Client
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	from     common.Address
}

// NewTransactor builds a Transactor from a hex private key.
func NewTransactor(backend *ethclient.Client, router common.Address, privateKeyHex string, chainID *big.Int) (*Transactor, error) {
	if router == (common.Address{}) {
		return nil, ErrNotConfigured
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return &Transactor{
		contract: bind.NewBoundContract(router, parsed, backend, backend, backend),
		backend:  backend,
		key:      key,
		chainID:  chainID,
		from:     crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// From returns the submitting account address.
func (t *Transactor) From() common.Address {
	return t.from
}

// SubmitSchedule submits the schedule-consuming transaction for the action.
func (t *Transactor) SubmitSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int) (common.Hash, error) {
	method := "refundWithSchedule"
	if action == model.ActionWithdraw {
		method = "withdrawWithSchedule"
	}
	if amount == nil {
		amount = new(big.Int)
	}
	return t.transact(ctx, method, new(big.Int).SetUint64(id), amount)
}

// SubmitClaim submits the claim transaction for a disbursed tranche.
func (t *Transactor) SubmitClaim(ctx context.Context, action model.DisbursementAction, id uint64) (common.Hash, error) {
	method := "claimRefund"
	if action == model.ActionWithdraw {
		method = "withdrawFunds"
	}
	return t.transact(ctx, method, new(big.Int).SetUint64(id))
}

// SubmitFull submits the single-shot full disbursement transaction.
func (t *Transactor) SubmitFull(ctx context.Context, action model.DisbursementAction, id uint64) (common.Hash, error) {
	method := "refund"
	if action == model.ActionWithdraw {
		method = "withdrawFunds"
	}
	return t.transact(ctx, method, new(big.Int).SetUint64(id))
}

// WaitConfirmed blocks until the transaction is mined, returning an error on
// a reverted receipt.
func (t *Transactor) WaitConfirmed(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("receipt %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transactor) transact(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(t.key, t.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := t.contract.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit %s: %w", method, err)
	}
	return tx.Hash(), nil
}
