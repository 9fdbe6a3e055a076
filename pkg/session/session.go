// Package session holds the signing identity used for chain transactions.
// The wallet owns the key; a Session only lends it to one signing request at
// a time.
package session

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrBusy = errors.New("session is busy with another signing request")

type Session struct {
	address common.Address
	opts    *bind.TransactOpts
	busy    atomic.Bool
}

func (s *Session) Address() common.Address {
	return s.address
}

// Acquire reserves the session for one signing request. The returned options
// are a copy bound to ctx; release must be called once the transaction has
// been submitted.
func (s *Session) Acquire(ctx context.Context) (opts *bind.TransactOpts, release func(), err error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}

	o := *s.opts
	o.Context = ctx

	var once atomic.Bool
	release = func() {
		if once.CompareAndSwap(false, true) {
			s.busy.Store(false)
		}
	}

	return &o, release, nil
}

func New(opts *bind.TransactOpts) *Session {
	return &Session{
		address: opts.From,
		opts:    opts,
	}
}

func NewFromKey(key *ecdsa.PrivateKey, chainID *big.Int) (*Session, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	return New(opts), nil
}

// NewFromHex builds a session from a hex encoded secp256k1 private key.
func NewFromHex(hexKey string, chainID *big.Int) (*Session, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return NewFromKey(key, chainID)
}
