package engine

import (
	"math/big"
	"testing"
)

func TestRewardForTruncates(t *testing.T) {
	// 1000 * 30 * 20 / (365 * 100) = 16.438... -> 16
	got := rewardFor(big.NewInt(1000), 30, 20, 100)
	if got.Cmp(big.NewInt(16)) != 0 {
		t.Fatalf("reward mismatch: %s != 16", got)
	}

	// 200 * 10 * 20 / 36500 = 1.095... -> 1
	got = rewardFor(big.NewInt(200), 10, 20, 100)
	if got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("reward mismatch: %s != 1", got)
	}
}

func TestRewardForZeroInputs(t *testing.T) {
	cases := []struct {
		amount *big.Int
		days   uint64
		num    uint64
		den    uint64
	}{
		{nil, 30, 20, 100},
		{big.NewInt(0), 30, 20, 100},
		{big.NewInt(100), 0, 20, 100},
		{big.NewInt(100), 30, 0, 100},
		{big.NewInt(100), 30, 20, 0},
	}
	for _, tc := range cases {
		if got := rewardFor(tc.amount, tc.days, tc.num, tc.den); got.Sign() != 0 {
			t.Fatalf("expected zero reward for %+v, got %s", tc, got)
		}
	}
}

func TestRewardRoundTrip(t *testing.T) {
	// Claimable at elapsed == duration must equal the full reservation.
	amounts := []int64{1, 199, 200, 1000, 123456789}
	for _, amount := range amounts {
		full := rewardFor(big.NewInt(amount), 30, 20, 100)
		claim := rewardFor(big.NewInt(amount), accruedDays(0+30*secondsPerDay, 0, 30), 20, 100)
		if full.Cmp(claim) != 0 {
			t.Fatalf("round trip mismatch for %d: %s != %s", amount, claim, full)
		}
	}
}

func TestValueDateFor(t *testing.T) {
	// 1700000000 is mid-day UTC; next cutover is the following 07:00.
	got := valueDateFor(1_700_000_000)
	want := uint64(1_700_031_600)
	if got != want {
		t.Fatalf("value date mismatch: %d != %d", got, want)
	}

	// Exactly at midnight the cutover is still the next day.
	got = valueDateFor(1_699_920_000)
	if got != want {
		t.Fatalf("value date at midnight mismatch: %d != %d", got, want)
	}
}

func TestAccruedDays(t *testing.T) {
	valueDate := uint64(1_700_031_600)

	if got := accruedDays(valueDate-1, valueDate, 30); got != 0 {
		t.Fatalf("expected 0 days before value date, got %d", got)
	}
	if got := accruedDays(valueDate, valueDate, 30); got != 0 {
		t.Fatalf("expected 0 days at value date, got %d", got)
	}
	if got := accruedDays(valueDate+10*secondsPerDay, valueDate, 30); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
	if got := accruedDays(valueDate+10*secondsPerDay+secondsPerDay-1, valueDate, 30); got != 10 {
		t.Fatalf("expected partial day to truncate, got %d", got)
	}
	if got := accruedDays(valueDate+45*secondsPerDay, valueDate, 30); got != 30 {
		t.Fatalf("expected cap at duration, got %d", got)
	}
}
