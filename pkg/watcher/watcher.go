// Package watcher polls chain status on a fixed interval and hands every
// snapshot to a set of sinks. Sinks are write-only: nothing they store is
// read back into checkpoint resolution.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
)

var (
	ErrNilLister = errors.New("watcher requires an adapter lister")
	ErrNotReady  = errors.New("no status snapshot taken yet")
)

// Lister yields the adapters to poll, in a stable order.
type Lister interface {
	List() []adapter.Adapter
}

// Observation is one chain/direction status. Chain is the config ID.
type Observation struct {
	Chain  string            `json:"chain"`
	Status types.ChainStatus `json:"status"`
}

// Snapshot is the result of one poll.
type Snapshot struct {
	TakenAt      time.Time     `json:"takenAt"`
	Observations []Observation `json:"observations"`
}

// Sink persists or publishes snapshots.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap Snapshot) error
}

type Watcher struct {
	lister  Lister
	sinks   []Sink
	cfg     Config
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time

	// lastTick is the unix nano time of the last completed Tick.
	lastTick atomic.Int64
}

func New(lister Lister, cfg Config, log *zap.SugaredLogger, m *metrics.Metrics, sinks ...Sink) (*Watcher, error) {
	if lister == nil {
		return nil, ErrNilLister
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{
		lister:  lister,
		sinks:   sinks,
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Run polls once right away and then on every interval until ctx is
// cancelled, returning nil on shutdown. A sink that keeps failing after its
// retries is logged and skipped for that snapshot; the next tick tries again.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	w.log.Infow("status watcher started",
		"interval", w.cfg.Interval,
		"sinks", len(w.sinks),
		"maxBlocksBehind", w.cfg.MaxBlocksBehind,
	)

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Ready reports ErrNotReady until the first Tick has completed.
func (w *Watcher) Ready() error {
	if w.lastTick.Load() == 0 {
		return ErrNotReady
	}
	return nil
}

// LastTick returns when the last Tick completed, or the zero time.
func (w *Watcher) LastTick() time.Time {
	n := w.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Tick polls once, checks lag and writes the snapshot to every sink.
func (w *Watcher) Tick(ctx context.Context) Snapshot {
	snap := w.Poll(ctx)
	w.checkLag(snap)
	for _, s := range w.sinks {
		err := w.write(ctx, s, snap)
		w.metrics.RecordSinkWrite(s.Name(), err)
		if err != nil && ctx.Err() == nil {
			w.log.Errorw("failed to write status snapshot", "sink", s.Name(), "error", err)
		}
	}
	w.lastTick.Store(w.now().UnixNano())
	return snap
}

// Poll fetches the status of every enabled direction. Concurrency is bounded
// by the configured semaphore weight; output order follows the lister.
func (w *Watcher) Poll(ctx context.Context) Snapshot {
	type job struct {
		a   adapter.Adapter
		dir types.Direction
	}
	var jobs []job
	for _, a := range w.lister.List() {
		for _, d := range a.Config().EnabledDirections() {
			jobs = append(jobs, job{a: a, dir: d})
		}
	}

	obs := make([]Observation, len(jobs))
	sem := semaphore.NewWeighted(w.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, j := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			obs[i] = Observation{Chain: j.a.Config().ID, Status: unpolled(j.a, j.dir, err)}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			pctx, cancel := context.WithTimeout(ctx, w.cfg.PollTimeout)
			defer cancel()
			obs[i] = Observation{Chain: j.a.Config().ID, Status: j.a.GetStatus(pctx, j.dir)}
		}()
	}
	wg.Wait()

	return Snapshot{TakenAt: w.now().UTC(), Observations: obs}
}

func unpolled(a adapter.Adapter, dir types.Direction, err error) types.ChainStatus {
	cfg := a.Config()
	return types.ChainStatus{
		ChainName:       cfg.Name,
		Direction:       dir,
		ContractAddress: cfg.ContractFor(dir),
		Error:           err.Error(),
	}
}

func (w *Watcher) checkLag(snap Snapshot) {
	for _, o := range snap.Observations {
		st := o.Status
		if !st.IsConnected {
			w.log.Warnw("chain status unavailable", "chain", o.Chain, "direction", st.Direction, "error", st.Error)
			continue
		}
		if w.cfg.MaxBlocksBehind == 0 || st.BlocksBehind == nil || *st.BlocksBehind <= w.cfg.MaxBlocksBehind {
			continue
		}
		fields := []any{
			"chain", o.Chain,
			"direction", st.Direction,
			"blocksBehind", *st.BlocksBehind,
			"maxBlocksBehind", w.cfg.MaxBlocksBehind,
		}
		if bt := w.blockTime(o.Chain, st.Direction); bt > 0 {
			fields = append(fields, "timeBehind", utils.CalculateTimeBehind(*st.BlocksBehind, bt))
		}
		w.log.Warnw("checkpoint lag too large", fields...)
	}
}

func (w *Watcher) blockTime(chain string, dir types.Direction) time.Duration {
	for _, a := range w.lister.List() {
		if cfg := a.Config(); cfg.ID == chain {
			return cfg.Layer(dir.SourceLayer()).BlockTime
		}
	}
	return 0
}

// write retries a failed write MaxRetries times, sleeping RetryBackoff
// between attempts. Cancellation stops the loop without another attempt.
func (w *Watcher) write(ctx context.Context, s Sink, snap Snapshot) error {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		wctx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
		lastErr = s.Write(wctx, snap)
		cancel()
		if lastErr == nil {
			return nil
		}

		if attempt < w.cfg.MaxRetries {
			select {
			case <-time.After(w.cfg.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("sink %s failed after %d attempts: %w", s.Name(), w.cfg.MaxRetries+1, lastErr)
}
