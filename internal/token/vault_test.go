package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testToken = common.HexToAddress("0x0000000000000000000000000000000000000201")
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func TestVaultTransferRoundTrip(t *testing.T) {
	vault := NewVault()
	ctx := context.Background()
	vault.SetBalance(testToken, holder, big.NewInt(500))

	if err := vault.TransferIn(ctx, testToken, holder, big.NewInt(300)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	custody, err := vault.BalanceOf(ctx, testToken)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if custody.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("custody: %s != 300", custody)
	}
	if got := vault.BalanceAt(testToken, holder); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("holder balance: %s != 200", got)
	}

	if err := vault.TransferOut(ctx, testToken, holder, big.NewInt(300)); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if got := vault.BalanceAt(testToken, holder); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("holder balance after round trip: %s != 500", got)
	}
}

func TestVaultInsufficientFunds(t *testing.T) {
	vault := NewVault()
	ctx := context.Background()
	vault.SetBalance(testToken, holder, big.NewInt(100))

	if err := vault.TransferIn(ctx, testToken, holder, big.NewInt(101)); err == nil {
		t.Fatalf("transfer in above balance succeeded")
	}
	if err := vault.TransferOut(ctx, testToken, holder, big.NewInt(1)); err == nil {
		t.Fatalf("transfer out of empty custody succeeded")
	}

	// Failed transfers leave balances untouched.
	if got := vault.BalanceAt(testToken, holder); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("holder balance mutated: %s", got)
	}
	custody, err := vault.BalanceOf(ctx, testToken)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if custody.Sign() != 0 {
		t.Fatalf("custody mutated: %s", custody)
	}
}

func TestVaultFailureInjection(t *testing.T) {
	vault := NewVault()
	ctx := context.Background()
	vault.SetBalance(testToken, holder, big.NewInt(100))
	vault.SetCustody(testToken, big.NewInt(100))

	vault.FailNextTransfers(true, true)
	if err := vault.TransferIn(ctx, testToken, holder, big.NewInt(10)); err == nil {
		t.Fatalf("injected transfer-in failure did not fire")
	}
	if err := vault.TransferOut(ctx, testToken, holder, big.NewInt(10)); err == nil {
		t.Fatalf("injected transfer-out failure did not fire")
	}

	vault.FailNextTransfers(false, false)
	if err := vault.TransferIn(ctx, testToken, holder, big.NewInt(10)); err != nil {
		t.Fatalf("transfer in after reset: %v", err)
	}
	if err := vault.TransferOut(ctx, testToken, holder, big.NewInt(10)); err != nil {
		t.Fatalf("transfer out after reset: %v", err)
	}
}

func TestVaultBalancesAreCopies(t *testing.T) {
	vault := NewVault()
	vault.SetCustody(testToken, big.NewInt(42))

	custody, err := vault.BalanceOf(context.Background(), testToken)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	custody.SetInt64(0)

	fresh, err := vault.BalanceOf(context.Background(), testToken)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if fresh.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("vault state aliased by query result: %s", fresh)
	}
}
