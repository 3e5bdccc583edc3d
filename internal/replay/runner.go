package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"stakeledger/internal/clock"
	"stakeledger/internal/engine"
	"stakeledger/internal/model"
	"stakeledger/internal/storage/postgres"
	"stakeledger/internal/token"
)

// replayStateName keys the resume cursor in the audit store.
const replayStateName = "ledger_replay"

// RunConfig holds runtime settings for the replay runner.
type RunConfig struct {
	InputPath         string
	ErrorsPath        string
	CheckpointPath    string
	CheckpointEnabled bool
	BatchSize         int
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner applies an operations JSONL stream to the ledger engine. Time is
// driven by per-op timestamps through a manual clock, so a replay is
// deterministic; rejected operations are recorded and skipped.
type Runner struct {
	cfg        RunConfig
	eng        *engine.Engine
	clk        *clock.Manual
	vault      *token.Vault
	store      *postgres.Store
	buffer     *EventBuffer
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner. The vault is optional and only needed when
// the ops stream seeds balances; the store is optional audit output.
func NewRunner(cfg RunConfig, eng *engine.Engine, clk *clock.Manual, vault *token.Vault, store *postgres.Store, buffer *EventBuffer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Runner{
		cfg:        cfg,
		eng:        eng,
		clk:        clk,
		vault:      vault,
		store:      store,
		buffer:     buffer,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.eng == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.clk == nil {
		return fmt.Errorf("clock is nil")
	}

	var resumeAfter uint64
	if cp, ok, err := r.checkpoint.Load(); err != nil {
		return err
	} else if ok {
		resumeAfter = cp.LastSeenSeq
		r.logger.Info("resume from checkpoint", zap.Uint64("last_seen_seq", resumeAfter))
	}
	if r.store != nil {
		seq, ok, err := r.store.LoadState(ctx, replayStateName)
		if err != nil {
			return fmt.Errorf("load replay state: %w", err)
		}
		if ok && seq > resumeAfter {
			resumeAfter = seq
			r.logger.Info("resume from store state", zap.Uint64("last_seen_seq", resumeAfter))
		}
	}

	file, err := os.Open(r.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var errWriter *applyErrorWriter
	if r.cfg.ErrorsPath != "" {
		errWriter, err = newApplyErrorWriter(r.cfg.ErrorsPath)
		if err != nil {
			return err
		}
		defer errWriter.Close()
	}

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, applied, skipped, rejected, sinceFlush int
	var lastSeq uint64
	var line uint64

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line++
		total++

		var record model.OpRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			rejected++
			r.recordError(errWriter, model.ApplyError{Seq: line, Error: fmt.Sprintf("decode op: %v", err)})
			continue
		}
		if record.Seq == 0 {
			record.Seq = line
		}
		if record.Seq <= resumeAfter {
			skipped++
			continue
		}

		if record.Time > 0 {
			r.clk.Set(time.Unix(int64(record.Time), 0))
		}

		if err := r.apply(ctx, record); err != nil {
			rejected++
			r.recordError(errWriter, model.ApplyError{
				Seq:    record.Seq,
				Op:     record.Op,
				PoolID: record.PoolID,
				User:   record.User,
				Class:  classOf(err),
				Error:  err.Error(),
			})
			r.logger.Warn("op rejected",
				zap.Uint64("seq", record.Seq),
				zap.String("op", record.Op),
				zap.Error(err),
			)
		} else {
			applied++
			sinceFlush++
		}
		lastSeq = record.Seq

		if sinceFlush >= r.cfg.BatchSize {
			if err := r.flush(ctx, lastSeq); err != nil {
				return err
			}
			sinceFlush = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if lastSeq > 0 {
		if err := r.flush(ctx, lastSeq); err != nil {
			return err
		}
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("rejected", rejected),
	)

	return nil
}

func (r *Runner) apply(ctx context.Context, record model.OpRecord) error {
	switch record.Op {
	case model.OpCreatePool:
		caller, err := parseAddress("caller", record.Caller)
		if err != nil {
			return err
		}
		params, err := poolParamsFromOp(record)
		if err != nil {
			return err
		}
		_, err = r.eng.CreatePool(ctx, caller, params)
		return err

	case model.OpClosePool:
		caller, err := parseAddress("caller", record.Caller)
		if err != nil {
			return err
		}
		return r.eng.ClosePool(caller, record.PoolID)

	case model.OpStake:
		user, err := parseAddress("user", record.User)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", record.Amount)
		if err != nil {
			return err
		}
		return r.eng.Stake(ctx, record.PoolID, user, amount)

	case model.OpWithdraw:
		user, err := parseAddress("user", record.User)
		if err != nil {
			return err
		}
		return r.eng.Withdraw(ctx, record.PoolID, user)

	case model.OpWithdrawExcess:
		caller, err := parseAddress("caller", record.Caller)
		if err != nil {
			return err
		}
		tok, err := parseAddress("token", record.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", record.Amount)
		if err != nil {
			return err
		}
		return r.eng.WithdrawExcessToken(ctx, caller, tok, amount)

	case model.OpSetBalance:
		if r.vault == nil {
			return fmt.Errorf("set_balance requires the in-memory vault")
		}
		tok, err := parseAddress("token", record.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", record.Amount)
		if err != nil {
			return err
		}
		if record.User == "" {
			r.vault.SetCustody(tok, amount)
			return nil
		}
		account, err := parseAddress("user", record.User)
		if err != nil {
			return err
		}
		r.vault.SetBalance(tok, account, amount)
		return nil

	default:
		return fmt.Errorf("unknown op: %q", record.Op)
	}
}

func (r *Runner) flush(ctx context.Context, lastSeq uint64) error {
	if r.store != nil {
		pools := r.eng.ListPools()
		stakes := r.eng.ListStakes()
		var events []model.LedgerEvent
		if r.buffer != nil {
			events = r.buffer.Drain()
		}
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			if err := r.store.UpsertPools(ctx, pools); err != nil {
				return err
			}
			if err := r.store.UpsertStakes(ctx, stakes); err != nil {
				return err
			}
			if err := r.store.InsertEvents(ctx, events); err != nil {
				return err
			}
			return r.store.SaveState(ctx, replayStateName, lastSeq)
		})
		if err != nil {
			return fmt.Errorf("flush audit store: %w", err)
		}
	}

	if err := r.checkpoint.Save(lastSeq); err != nil {
		return err
	}
	return nil
}

func (r *Runner) recordError(w *applyErrorWriter, applyErr model.ApplyError) {
	if w == nil {
		return
	}
	if err := w.Write(applyErr); err != nil {
		r.logger.Warn("write apply error", zap.Error(err))
	}
}

func classOf(err error) string {
	if class := engine.ClassOf(err); class != 0 {
		return class.String()
	}
	return ""
}

// EventBuffer is a sink that batches events for the audit store.
type EventBuffer struct {
	mu     sync.Mutex
	events []model.LedgerEvent
}

func NewEventBuffer() *EventBuffer {
	return &EventBuffer{}
}

func (b *EventBuffer) Emit(event model.LedgerEvent) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

// Drain returns buffered events and resets the buffer.
func (b *EventBuffer) Drain() []model.LedgerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

type applyErrorWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newApplyErrorWriter(path string) (*applyErrorWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create errors dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open errors file: %w", err)
	}
	return &applyErrorWriter{file: file, writer: bufio.NewWriter(file)}, nil
}

func (w *applyErrorWriter) Write(applyErr model.ApplyError) error {
	line, err := json.Marshal(applyErr)
	if err != nil {
		return fmt.Errorf("marshal apply error: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write apply error: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return w.writer.Flush()
}

func (w *applyErrorWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}
