package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakeledger/internal/access"
	"stakeledger/internal/chain"
	"stakeledger/internal/clock"
	"stakeledger/internal/config"
	"stakeledger/internal/engine"
	"stakeledger/internal/events"
	"stakeledger/internal/replay"
	"stakeledger/internal/storage/postgres"
	"stakeledger/internal/token"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	admins, err := parseAdmins(cfg.Admins)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return fmt.Errorf("at least one admin address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tokens token.Service
	var vault *token.Vault
	if cfg.RPCURL != "" {
		if cfg.Key == "" {
			return fmt.Errorf("custody key is required with --rpc")
		}
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		key, err := crypto.HexToECDSA(cfg.Key)
		if err != nil {
			return fmt.Errorf("parse custody key: %w", err)
		}
		chainID, err := chainClient.GetChainID(ctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return fmt.Errorf("build transactor: %w", err)
		}
		service, err := token.NewERC20Service(chainClient, auth)
		if err != nil {
			return err
		}
		logger.Info("on-chain token service",
			zap.String("custody", service.Custody().Hex()),
			zap.String("chain_id", chainID.String()),
		)
		tokens = service
	} else {
		vault = token.NewVault()
		tokens = vault
	}

	var store *postgres.Store
	buffer := replay.NewEventBuffer()
	sinks := events.Multi{events.NewZapSink(logger)}
	if cfg.Out != "" {
		sinks = append(sinks, events.NewJSONL(cfg.Out, logger))
	}
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, buffer)
	}

	clk := clock.NewManual(time.Unix(0, 0))
	eng, err := engine.New(tokens, access.NewStaticAdmins(admins), clk, sinks, logger)
	if err != nil {
		return err
	}

	retryBackoff, _ := cmd.Flags().GetDuration("retry-backoff")
	runner := replay.NewRunner(replay.RunConfig{
		InputPath:         cfg.In,
		ErrorsPath:        cfg.Errors,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		BatchSize:         cfg.BatchSize,
		MaxRetries:        3,
		RetryBackoff:      retryBackoff,
	}, eng, clk, vault, store, buffer, logger)

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Int("admins", len(admins)),
		zap.Bool("on_chain", cfg.RPCURL != ""),
		zap.Bool("audit_store", cfg.PGDSN != ""),
	)

	return runner.Run(ctx)
}

func parseAdmins(values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, value := range values {
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid admin address: %q", value)
		}
		out = append(out, common.HexToAddress(value))
	}
	return out, nil
}
