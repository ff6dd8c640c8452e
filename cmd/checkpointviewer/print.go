package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
)

const none = "-"

type statusRow struct {
	Chain  chains.ChainConfig
	Status types.ChainStatus
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetColumnSeparator("")
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

func printChains(w io.Writer, cfgs []chains.ChainConfig) {
	t := newTable(w, "CHAIN", "NAME", "PROTOCOL", "DIRECTIONS", "L1 CONTRACT", "L2 CONTRACT", "CONFIGURED")
	for _, c := range cfgs {
		dirs := make([]string, 0, 2)
		for _, d := range c.EnabledDirections() {
			dirs = append(dirs, string(d))
		}
		configured := "yes"
		if err := c.Validate(); err != nil {
			configured = "no"
		}
		t.Append([]string{
			c.ID,
			c.Name,
			string(c.Protocol),
			strings.Join(dirs, ","),
			c.L1.Address.Hex(),
			c.L2.Address.Hex(),
			configured,
		})
	}
	t.Render()
}

func printStatuses(w io.Writer, rows []statusRow) {
	t := newTable(w, "CHAIN", "DIRECTION", "LATEST", "HASH", "COMMITTED IN", "BEHIND", "STATE")
	for _, r := range rows {
		st := r.Status
		latest, hash, committed := none, none, none
		if cp := st.LatestCheckpoint; cp != nil {
			latest = strconv.FormatUint(cp.BlockNumber, 10)
			hash = utils.FormatBlockHash(cp.BlockHash)
			committed = strconv.FormatUint(cp.CheckpointedInBlock, 10)
		}
		behind := none
		if st.BlocksBehind != nil {
			blockTime := r.Chain.Layer(st.Direction.SourceLayer()).BlockTime
			behind = fmt.Sprintf("%d (%s)", *st.BlocksBehind, utils.CalculateTimeBehind(*st.BlocksBehind, blockTime))
		}
		state := "ok"
		if !st.IsConnected {
			state = "error: " + st.Error
		}
		t.Append([]string{r.Chain.Name, string(st.Direction), latest, hash, committed, behind, state})
	}
	t.Render()
}

func printCheckpoints(w io.Writer, cfg chains.ChainConfig, dir types.Direction, cps []types.Checkpoint) {
	if len(cps) == 0 {
		fmt.Fprintf(w, "no %s checkpoints found for %s in the scan window\n", dir, cfg.Name)
		return
	}
	t := newTable(w, "BLOCK", "HASH", "STATE ROOT", "COMMITTED IN", "AGE", "TX")
	for _, cp := range cps {
		age := none
		if cp.CheckpointedAt != nil {
			age = utils.FormatTimeBehind(time.Since(*cp.CheckpointedAt)) + " ago"
		}
		t.Append([]string{
			blockLabel(cp),
			utils.FormatBlockHash(cp.BlockHash),
			utils.FormatBlockHash(cp.StateRoot),
			strconv.FormatUint(cp.CheckpointedInBlock, 10),
			age,
			utils.FormatBlockHash(cp.TransactionHash),
		})
	}
	t.Render()
}

// blockLabel shows the finalized range of range-finalizing protocols.
func blockLabel(cp types.Checkpoint) string {
	if cp.RangeStart != nil && *cp.RangeStart != cp.BlockNumber {
		return fmt.Sprintf("%d-%d", *cp.RangeStart, cp.BlockNumber)
	}
	return strconv.FormatUint(cp.BlockNumber, 10)
}

func printProofResult(w io.Writer, cfg chains.ChainConfig, dir types.Direction, res types.ProofResult) {
	if res.Exists && res.ProofBlock != nil {
		fmt.Fprintf(w, "block %d is checkpointed on %s (%s)\n", res.BlockNumber, cfg.Name, dir)
		if *res.ProofBlock != res.BlockNumber {
			fmt.Fprintf(w, "proofs must target block %d\n", *res.ProofBlock)
		}
		if cp := res.Checkpoint; cp != nil {
			fmt.Fprintf(w, "checkpoint %s committed in block %d\n", utils.FormatBlockHash(cp.BlockHash), cp.CheckpointedInBlock)
		}
		fmt.Fprintf(w, "next: checkpointviewer generate-proof --chain %s --direction %s --block %d\n", cfg.ID, dir, *res.ProofBlock)
		return
	}

	fmt.Fprintf(w, "block %d is not checkpointed on %s (%s) yet\n", res.BlockNumber, cfg.Name, dir)
	if res.Error != "" {
		fmt.Fprintln(w, res.Error)
	}
	if res.CurrentBlock != nil {
		fmt.Fprintf(w, "%s head: %d\n", dir.SourceLayer(), *res.CurrentBlock)
	}
	if res.BlocksAhead != nil {
		blockTime := cfg.Layer(dir.SourceLayer()).BlockTime
		fmt.Fprintf(w, "estimated wait: %s\n", utils.CalculateTimeBehind(*res.BlocksAhead, blockTime))
	}
}
