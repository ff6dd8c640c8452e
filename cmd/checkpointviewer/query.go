package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/proof"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
)

var ErrNotCovered = errors.New("block is not covered by a checkpoint yet")

// withStack runs fn against a freshly wired engine. One-shot commands carry no
// metrics.
func withStack(c *cli.Context, fn func(ctx context.Context, st *stack) error) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}
	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	st, err := newStack(cfg, sugar, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, st)
}

// target resolves the --chain and --direction flags.
func target(c *cli.Context, st *stack) (adapter.Adapter, types.Direction, error) {
	a, err := st.registry.Get(c.String("chain"))
	if err != nil {
		return nil, "", err
	}
	dir, err := types.ParseDirection(c.String("direction"))
	if err != nil {
		return nil, "", err
	}
	if !a.Config().Supports(dir) {
		return nil, "", fmt.Errorf("%s does not support %s", a.Config().ID, dir)
	}
	return a, dir, nil
}

// listChains needs no RPC access and also lists chains that lack endpoints.
func listChains(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}
	cfgs, err := chains.Load(cfg.Network, nil)
	if err != nil {
		return fmt.Errorf("failed to load chain config: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, map[string]any{"network": cfg.Network, "chains": cfgs})
	}
	printChains(c.App.Writer, cfgs)
	return nil
}

func status(c *cli.Context) error {
	return withStack(c, func(ctx context.Context, st *stack) error {
		adapters := st.registry.List()
		if id := c.String("chain"); id != "" {
			a, err := st.registry.Get(id)
			if err != nil {
				return err
			}
			adapters = []adapter.Adapter{a}
		}
		var only types.Direction
		if s := c.String("direction"); s != "" {
			d, err := types.ParseDirection(s)
			if err != nil {
				return err
			}
			only = d
		}

		var rows []statusRow
		for _, a := range adapters {
			cfg := a.Config()
			for _, dir := range cfg.EnabledDirections() {
				if only != "" && dir != only {
					continue
				}
				rows = append(rows, statusRow{Chain: cfg, Status: a.GetStatus(ctx, dir)})
			}
		}
		if c.Bool("json") {
			statuses := make([]types.ChainStatus, 0, len(rows))
			for _, r := range rows {
				statuses = append(statuses, r.Status)
			}
			return printJSON(c.App.Writer, map[string]any{"statuses": statuses})
		}
		printStatuses(c.App.Writer, rows)
		return nil
	})
}

func checkpoints(c *cli.Context) error {
	return withStack(c, func(ctx context.Context, st *stack) error {
		a, dir, err := target(c, st)
		if err != nil {
			return err
		}
		cps, err := a.GetCheckpoints(ctx, dir, c.Int("limit"))
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(c.App.Writer, map[string]any{"checkpoints": cps})
		}
		printCheckpoints(c.App.Writer, a.Config(), dir, cps)
		return nil
	})
}

func checkProof(c *cli.Context) error {
	return withStack(c, func(ctx context.Context, st *stack) error {
		a, dir, err := target(c, st)
		if err != nil {
			return err
		}
		res := a.CheckProof(ctx, dir, c.Uint64("block"))
		if c.Bool("json") {
			return printJSON(c.App.Writer, res)
		}
		printProofResult(c.App.Writer, a.Config(), dir, res)
		if !res.Exists {
			return ErrNotCovered
		}
		return nil
	})
}

func generateProof(c *cli.Context) error {
	return withStack(c, func(ctx context.Context, st *stack) error {
		_, dir, err := target(c, st)
		if err != nil {
			return err
		}
		req := proof.GenerateRequest{
			Chain:       c.String("chain"),
			Direction:   dir,
			BlockNumber: c.Uint64("block"),
		}
		if s := c.String("slot"); s != "" {
			slot, err := proof.ParseSlot(s)
			if err != nil {
				return err
			}
			req.Slot = &slot
		}
		if s := c.String("account"); s != "" {
			if !common.IsHexAddress(s) {
				return fmt.Errorf("invalid account %q", s)
			}
			addr := common.HexToAddress(s)
			req.Account = &addr
		}

		res, err := st.prover.Generate(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, res)
	})
}
