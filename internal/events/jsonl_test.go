package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"stakeledger/internal/model"
)

func TestJSONLAppendsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJSONL(path, nil)

	sink.Emit(model.LedgerEvent{Seq: 1, Name: model.EventNewPool, Time: 100, PoolID: 0})
	sink.Emit(model.LedgerEvent{Seq: 2, Name: model.EventStaked, Time: 110, PoolID: 0, Amount: "200"})

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var got []model.LedgerEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event model.LedgerEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan output: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("event count: %d != 2", len(got))
	}
	if got[0].Seq != 1 || got[0].Name != model.EventNewPool {
		t.Fatalf("first event: %+v", got[0])
	}
	if got[1].Amount != "200" {
		t.Fatalf("second event amount: %q", got[1].Amount)
	}
}

func TestJSONLSwallowsWriteFailures(t *testing.T) {
	// Directory as target path forces the open to fail; Emit must not
	// panic or propagate.
	sink := NewJSONL(t.TempDir(), nil)
	sink.Emit(model.LedgerEvent{Seq: 1, Name: model.EventNewPool})
}

func TestMultiFansOut(t *testing.T) {
	var first, second []model.LedgerEvent
	sink := Multi{
		sinkFunc(func(e model.LedgerEvent) { first = append(first, e) }),
		nil,
		sinkFunc(func(e model.LedgerEvent) { second = append(second, e) }),
	}

	sink.Emit(model.LedgerEvent{Seq: 7, Name: model.EventClosePool})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fan-out mismatch: %d, %d", len(first), len(second))
	}
	if first[0].Seq != 7 || second[0].Seq != 7 {
		t.Fatalf("event mutated in fan-out")
	}
}

type sinkFunc func(model.LedgerEvent)

func (f sinkFunc) Emit(event model.LedgerEvent) { f(event) }
