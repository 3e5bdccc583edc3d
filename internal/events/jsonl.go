package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"stakeledger/internal/model"
)

// JSONL appends events to a JSONL file.
type JSONL struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewJSONL(path string, logger *zap.Logger) *JSONL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONL{path: path, logger: logger}
}

// Emit appends one event line. Failures are logged, never propagated.
func (s *JSONL) Emit(event model.LedgerEvent) {
	if err := s.append(event); err != nil {
		s.logger.Warn("event sink write failed", zap.Error(err), zap.String("name", event.Name))
	}
}

func (s *JSONL) append(event model.LedgerEvent) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
