package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Vault is an in-memory token service for tests and offline replays.
// It tracks per-token account balances, with the custody account held
// separately, and can be told to fail transfers on demand.
type Vault struct {
	mu       sync.RWMutex
	custody  map[common.Address]*big.Int
	accounts map[common.Address]map[common.Address]*big.Int

	failTransferIn  bool
	failTransferOut bool
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		custody:  make(map[common.Address]*big.Int),
		accounts: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// SetBalance sets an external account balance for a token.
func (v *Vault) SetBalance(tok, account common.Address, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	holders := v.accounts[tok]
	if holders == nil {
		holders = make(map[common.Address]*big.Int)
		v.accounts[tok] = holders
	}
	holders[account] = new(big.Int).Set(amount)
}

// SetCustody sets the custody balance for a token directly. Replays use it
// to model tokens sent to the contract outside the accounting model.
func (v *Vault) SetCustody(tok common.Address, amount *big.Int) {
	v.mu.Lock()
	v.custody[tok] = new(big.Int).Set(amount)
	v.mu.Unlock()
}

// BalanceAt returns an external account balance for a token.
func (v *Vault) BalanceAt(tok, account common.Address) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if holders := v.accounts[tok]; holders != nil {
		if bal := holders[account]; bal != nil {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// FailNextTransfers flips failure injection for transfer calls.
func (v *Vault) FailNextTransfers(in, out bool) {
	v.mu.Lock()
	v.failTransferIn = in
	v.failTransferOut = out
	v.mu.Unlock()
}

func (v *Vault) TransferIn(_ context.Context, tok, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failTransferIn {
		return fmt.Errorf("transfer in rejected")
	}

	holders := v.accounts[tok]
	var bal *big.Int
	if holders != nil {
		bal = holders[from]
	}
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: account %s token %s", from.Hex(), tok.Hex())
	}

	bal.Sub(bal, amount)
	cust := v.custody[tok]
	if cust == nil {
		cust = new(big.Int)
		v.custody[tok] = cust
	}
	cust.Add(cust, amount)
	return nil
}

func (v *Vault) TransferOut(_ context.Context, tok, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failTransferOut {
		return fmt.Errorf("transfer out rejected")
	}

	cust := v.custody[tok]
	if cust == nil || cust.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient custody: token %s", tok.Hex())
	}

	cust.Sub(cust, amount)
	holders := v.accounts[tok]
	if holders == nil {
		holders = make(map[common.Address]*big.Int)
		v.accounts[tok] = holders
	}
	bal := holders[to]
	if bal == nil {
		bal = new(big.Int)
		holders[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

func (v *Vault) BalanceOf(_ context.Context, tok common.Address) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if bal := v.custody[tok]; bal != nil {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}
