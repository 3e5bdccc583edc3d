package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stakeledger/internal/access"
	"stakeledger/internal/clock"
	"stakeledger/internal/engine"
	"stakeledger/internal/replay"
	"stakeledger/internal/token"
)

func runPools(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	adminValues, _ := cmd.Flags().GetStringSlice("admin")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if in == "" {
		return fmt.Errorf("input path is required")
	}
	admins, err := parseAdmins(adminValues)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return fmt.Errorf("at least one admin address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vault := token.NewVault()
	clk := clock.NewManual(time.Unix(0, 0))
	eng, err := engine.New(vault, access.NewStaticAdmins(admins), clk, nil, logger)
	if err != nil {
		return err
	}

	runner := replay.NewRunner(replay.RunConfig{
		InputPath: in,
	}, eng, clk, vault, nil, nil, logger)
	if err := runner.Run(ctx); err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tACTIVE\tSTART\tDAYS\tAPR\tSTAKED\tCAP\tFREE\tSTAKE TOKEN\tREWARD TOKEN")
	for _, pool := range eng.ListPools() {
		fmt.Fprintf(writer, "%d\t%t\t%s\t%d\t%d/%d\t%s\t%s\t%s\t%s\t%s\n",
			pool.ID,
			pool.IsActive,
			time.Unix(int64(pool.StartTime), 0).UTC().Format(time.RFC3339),
			pool.DurationDays,
			pool.APRNumerator,
			pool.APRDenominator,
			pool.TotalStaked.String(),
			pool.MaxPool.String(),
			pool.Remaining().String(),
			pool.StakeToken.Hex(),
			pool.RewardToken.Hex(),
		)
	}
	return writer.Flush()
}
