package engine

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/access"
	"stakeledger/internal/clock"
	"stakeledger/internal/events"
	"stakeledger/internal/model"
	"stakeledger/internal/token"
)

// Engine is the pool and stake accounting state machine. Every operation
// runs to completion under one lock and either fully commits or leaves
// state untouched; all mutation is deferred until collaborator calls have
// succeeded.
type Engine struct {
	tokens token.Service
	auth   access.Controller
	clk    clock.Clock
	sink   events.Sink
	logger *zap.Logger

	// inOp rejects overlapping operations instead of queueing them,
	// which also catches a token callback re-entering mid-operation.
	inOp atomic.Bool
	mu   sync.RWMutex

	pools    []*model.Pool
	stakes   map[stakeKey]*model.StakeRecord
	staked   map[common.Address]*big.Int
	reserved map[common.Address]*big.Int

	eventSeq uint64
}

type stakeKey struct {
	poolID uint64
	user   common.Address
}

// New builds an engine over its collaborators. Clock, sink, and logger
// fall back to defaults when nil; the token service and access controller
// are required.
func New(tokens token.Service, auth access.Controller, clk clock.Clock, sink events.Sink, logger *zap.Logger) (*Engine, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token service is nil")
	}
	if auth == nil {
		return nil, fmt.Errorf("access controller is nil")
	}
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tokens:   tokens,
		auth:     auth,
		clk:      clk,
		sink:     sink,
		logger:   logger,
		stakes:   make(map[stakeKey]*model.StakeRecord),
		staked:   make(map[common.Address]*big.Int),
		reserved: make(map[common.Address]*big.Int),
	}, nil
}

// SetClock swaps the time source. Admin-only; used by test and ops tooling
// to pin time.
func (e *Engine) SetClock(caller common.Address, clk clock.Clock) error {
	if clk == nil {
		return errValidation("clock is nil")
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if !e.auth.IsAdmin(caller) {
		return errState("caller is not admin")
	}
	e.clk = clk
	return nil
}

// begin claims the single operation slot and the write lock. Overlapping
// calls fail synchronously rather than queue.
func (e *Engine) begin() error {
	if !e.inOp.CompareAndSwap(false, true) {
		return errState("operation in progress")
	}
	e.mu.Lock()
	return nil
}

func (e *Engine) end() {
	e.mu.Unlock()
	e.inOp.Store(false)
}

// beginRead takes the read lock unless an operation is mid-flight, so a
// collaborator callback into a query fails instead of deadlocking on the
// write lock its own operation holds.
func (e *Engine) beginRead() error {
	if e.inOp.Load() {
		return errState("operation in progress")
	}
	e.mu.RLock()
	return nil
}

func (e *Engine) now() uint64 {
	return uint64(e.clk.Now().Unix())
}

// emit hands one event to the sink under the operation lock, so event
// sequence numbers follow commit order.
func (e *Engine) emit(event model.LedgerEvent) {
	e.eventSeq++
	event.Seq = e.eventSeq
	e.sink.Emit(event)
}

func tallyAdd(tally map[common.Address]*big.Int, tok common.Address, amount *big.Int) {
	total := tally[tok]
	if total == nil {
		total = new(big.Int)
		tally[tok] = total
	}
	total.Add(total, amount)
}

func tallySub(tally map[common.Address]*big.Int, tok common.Address, amount *big.Int) {
	total := tally[tok]
	if total == nil {
		total = new(big.Int)
		tally[tok] = total
	}
	total.Sub(total, amount)
}

func tallyGet(tally map[common.Address]*big.Int, tok common.Address) *big.Int {
	if total := tally[tok]; total != nil {
		return new(big.Int).Set(total)
	}
	return new(big.Int)
}
