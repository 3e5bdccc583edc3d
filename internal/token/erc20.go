package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"stakeledger/internal/chain"
)

// ERC20Service is a token service backed by on-chain ERC20 contracts.
// Custody is the transactor account; TransferIn relies on a prior
// allowance from the staking account to custody.
type ERC20Service struct {
	client *chain.Client
	auth   *bind.TransactOpts

	mu    sync.Mutex
	bound map[common.Address]*bind.BoundContract
}

// NewERC20Service builds a token service signing with the given transactor.
func NewERC20Service(client *chain.Client, auth *bind.TransactOpts) (*ERC20Service, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if auth == nil {
		return nil, fmt.Errorf("transact opts are nil")
	}
	return &ERC20Service{
		client: client,
		auth:   auth,
		bound:  make(map[common.Address]*bind.BoundContract),
	}, nil
}

// Custody returns the custody account address.
func (s *ERC20Service) Custody() common.Address {
	return s.auth.From
}

func (s *ERC20Service) TransferIn(ctx context.Context, tok, from common.Address, amount *big.Int) error {
	tx, err := s.transact(ctx, tok, "transferFrom", from, s.auth.From, amount)
	if err != nil {
		return fmt.Errorf("transfer in %s: %w", tok.Hex(), err)
	}
	return s.waitMined(ctx, tok, tx)
}

func (s *ERC20Service) TransferOut(ctx context.Context, tok, to common.Address, amount *big.Int) error {
	tx, err := s.transact(ctx, tok, "transfer", to, amount)
	if err != nil {
		return fmt.Errorf("transfer out %s: %w", tok.Hex(), err)
	}
	return s.waitMined(ctx, tok, tx)
}

func (s *ERC20Service) BalanceOf(ctx context.Context, tok common.Address) (*big.Int, error) {
	contract, err := s.contract(tok)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", s.auth.From); err != nil {
		return nil, fmt.Errorf("balance of %s: %w", tok.Hex(), err)
	}
	if len(out) == 0 {
		return new(big.Int), nil
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balance of %s: unexpected result type", tok.Hex())
	}
	return balance, nil
}

func (s *ERC20Service) transact(ctx context.Context, tok common.Address, method string, args ...interface{}) (*types.Transaction, error) {
	contract, err := s.contract(tok)
	if err != nil {
		return nil, err
	}

	opts := *s.auth
	opts.Context = ctx
	return contract.Transact(&opts, method, args...)
}

func (s *ERC20Service) waitMined(ctx context.Context, tok common.Address, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, s.client.Eth(), tx)
	if err != nil {
		return fmt.Errorf("wait mined %s: %w", tok.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transfer reverted: token %s tx %s", tok.Hex(), tx.Hash().Hex())
	}
	return nil
}

func (s *ERC20Service) contract(tok common.Address) (*bind.BoundContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contract, ok := s.bound[tok]; ok {
		return contract, nil
	}

	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	eth := s.client.Eth()
	contract := bind.NewBoundContract(tok, parsed, eth, eth, eth)
	s.bound[tok] = contract
	return contract, nil
}
