package events

import (
	"go.uber.org/zap"

	"stakeledger/internal/model"
)

// Sink receives ledger notifications. Emit is fire-and-forget: sinks must
// not block engine operations and must swallow their own failures.
type Sink interface {
	Emit(event model.LedgerEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(model.LedgerEvent) {}

// ZapSink logs each event as a structured record.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(event model.LedgerEvent) {
	s.logger.Info("ledger event",
		zap.String("name", event.Name),
		zap.Uint64("seq", event.Seq),
		zap.Uint64("time", event.Time),
		zap.Uint64("pool_id", event.PoolID),
		zap.String("user", event.User),
		zap.String("token", event.Token),
		zap.String("amount", event.Amount),
		zap.String("reward", event.Reward),
	)
}

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(event model.LedgerEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(event)
		}
	}
}
