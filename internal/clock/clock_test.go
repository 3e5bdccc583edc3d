package clock

import (
	"testing"
	"time"
)

func TestManualSetAndAdvance(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := NewManual(start)

	if got := clk.Now().Unix(); got != start.Unix() {
		t.Fatalf("initial time: %d != %d", got, start.Unix())
	}

	clk.Advance(90 * time.Second)
	if got := clk.Now().Unix(); got != start.Unix()+90 {
		t.Fatalf("after advance: %d", got)
	}

	pinned := time.Unix(1_800_000_000, 0)
	clk.Set(pinned)
	if got := clk.Now().Unix(); got != pinned.Unix() {
		t.Fatalf("after set: %d", got)
	}
}

func TestManualReturnsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	clk := NewManual(time.Unix(1_700_000_000, 0).In(loc))
	if clk.Now().Location() != time.UTC {
		t.Fatalf("manual clock not normalized to UTC")
	}
}
