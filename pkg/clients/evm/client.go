package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DeployArgs are the release contract constructor arguments in chain units.
type DeployArgs struct {
	Payees             []common.Address
	Shares             []*big.Int
	SalePriceWei       *big.Int
	Name               string
	Symbol             string
	Quantity           *big.Int
	RoyaltyBasisPoints *big.Int
	MetadataURI        string
}

type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Client interface {
	Deploy(ctx context.Context, opts *bind.TransactOpts, args DeployArgs) (*types.Transaction, error)
	Transact(ctx context.Context, opts *bind.TransactOpts, contract common.Address, method string, args ...any) (*types.Transaction, error)
	Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type client struct {
	backend  Backend
	abi      abi.ABI
	bytecode []byte
	logger   *slog.Logger
}

var ErrNoBytecode = errors.New("release contract bytecode is not configured")

func (c *client) Deploy(ctx context.Context, opts *bind.TransactOpts, args DeployArgs) (*types.Transaction, error) {
	if len(c.bytecode) == 0 {
		return nil, ErrNoBytecode
	}

	o := *opts
	o.Context = ctx

	addr, tx, _, err := bind.DeployContract(&o, c.abi, c.bytecode, c.backend,
		args.Payees,
		args.Shares,
		orZero(args.SalePriceWei),
		args.Name,
		args.Symbol,
		orZero(args.Quantity),
		orZero(args.RoyaltyBasisPoints),
		args.MetadataURI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy release contract: %w", err)
	}

	c.logger.Info("release contract deployment submitted",
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("address", addr.Hex()),
	)

	return tx, nil
}

func (c *client) Transact(ctx context.Context, opts *bind.TransactOpts, contract common.Address, method string, args ...any) (*types.Transaction, error) {
	if _, ok := c.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("unknown contract method %q", method)
	}

	o := *opts
	o.Context = ctx

	bound := bind.NewBoundContract(contract, c.abi, c.backend, c.backend, c.backend)
	tx, err := bound.Transact(&o, method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return tx, nil
}

// Wait blocks until tx is mined. A failed receipt is returned together with a
// *RevertedError carrying the reason recovered by replaying the call.
func (c *client) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		return receipt, nil
	}

	return receipt, &RevertedError{
		Receipt: receipt,
		Reason:  c.replayReason(ctx, tx, receipt),
	}
}

func (c *client) replayReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return ""
	}

	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	_, callErr := c.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if callErr == nil {
		return ""
	}

	c.logger.Debug("replayed reverted transaction",
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("error", callErr.Error()),
	)

	return RevertReason(callErr)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func NewClient(backend Backend, bytecode []byte, logger *slog.Logger) (Client, error) {
	parsed, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse release contract ABI: %w", err)
	}

	return &client{
		backend:  backend,
		abi:      parsed,
		bytecode: bytecode,
		logger:   logger,
	}, nil
}
