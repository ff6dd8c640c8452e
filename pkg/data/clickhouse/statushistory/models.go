package statushistory

import (
	"time"

	"github.com/openintents/checkpoint-viewer/pkg/watcher"
)

// Row is one observation as stored in the history table.
type Row struct {
	ObservedAt          time.Time `ch:"observed_at"`
	Chain               string    `ch:"chain"`
	Direction           string    `ch:"direction"`
	IsConnected         bool      `ch:"is_connected"`
	CurrentBlock        *uint64   `ch:"current_block"`
	LatestCheckpoint    *uint64   `ch:"latest_checkpoint"`
	CheckpointedInBlock *uint64   `ch:"checkpointed_in_block"`
	BlocksBehind        *uint64   `ch:"blocks_behind"`
	TotalCheckpoints    uint32    `ch:"total_checkpoints"`
	Error               string    `ch:"error"`
}

// Rows flattens a snapshot, stamping every row with the snapshot time.
func Rows(snap watcher.Snapshot) []Row {
	out := make([]Row, 0, len(snap.Observations))
	for _, o := range snap.Observations {
		st := o.Status
		r := Row{
			ObservedAt:       snap.TakenAt,
			Chain:            o.Chain,
			Direction:        string(st.Direction),
			IsConnected:      st.IsConnected,
			CurrentBlock:     st.CurrentBlock,
			BlocksBehind:     st.BlocksBehind,
			TotalCheckpoints: uint32(st.TotalCheckpoints), //nolint:gosec // bounded by the scan window
			Error:            st.Error,
		}
		if cp := st.LatestCheckpoint; cp != nil {
			r.LatestCheckpoint = &cp.BlockNumber
			r.CheckpointedInBlock = &cp.CheckpointedInBlock
		}
		out = append(out, r)
	}
	return out
}

func (r Row) values() []any {
	return []any{
		r.ObservedAt,
		r.Chain,
		r.Direction,
		r.IsConnected,
		r.CurrentBlock,
		r.LatestCheckpoint,
		r.CheckpointedInBlock,
		r.BlocksBehind,
		r.TotalCheckpoints,
		r.Error,
	}
}
