package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Service moves fungible tokens between the ledger's custody account and
// external accounts. Transfers are all-or-nothing: a nil error means the
// full amount moved, any error means nothing moved. The same token address
// may serve as both the stake and the reward leg of a pool.
type Service interface {
	// TransferIn pulls amount of token from the given account into custody.
	TransferIn(ctx context.Context, tok common.Address, from common.Address, amount *big.Int) error
	// TransferOut pays amount of token from custody to the given account.
	TransferOut(ctx context.Context, tok common.Address, to common.Address, amount *big.Int) error
	// BalanceOf reports the custody balance of the given token.
	BalanceOf(ctx context.Context, tok common.Address) (*big.Int, error)
}
