package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "stakeledger",
		Short:        "Time-locked token staking ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operations JSONL stream to the ledger",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input operations JSONL path")
	replayCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	replayCmd.Flags().String("errors", "./data/apply_errors.jsonl", "rejected ops JSONL path")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for audit snapshots")
	replayCmd.Flags().Int("batch-size", 500, "ops per audit flush")
	replayCmd.Flags().StringSlice("admin", nil, "admin addresses (comma-separated)")
	replayCmd.Flags().String("rpc", "", "optional RPC URL for on-chain token transfers")
	replayCmd.Flags().String("key", "", "custody account private key (hex, required with --rpc)")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial audit store retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Replay an operations stream and print the pool table",
		RunE:  runPools,
	}

	poolsCmd.Flags().String("in", "", "input operations JSONL path")
	poolsCmd.Flags().StringSlice("admin", nil, "admin addresses (comma-separated)")
	poolsCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(poolsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
