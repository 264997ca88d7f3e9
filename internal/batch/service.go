// Package batch runs processing passes: one engine per input stream, with the
// lifecycle events around it and aggregation across independent passes.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/ingest"
	"github.com/congo-pay/txengine/internal/ledger"
)

// Result is the outcome of one pass.
type Result struct {
	RunID       string
	Source      string
	Accounts    map[uint16]ledger.Account
	Stats       ingest.Stats
	StartedAt   time.Time
	CompletedAt time.Time
}

// Source names a stream for RunAll.
type Source struct {
	Name   string
	Reader io.Reader
}

// Service runs passes and reports their events to a shared sink. The sink
// must be safe for concurrent use when RunAll is used.
type Service struct {
	sink   events.Sink
	logger *slog.Logger
}

// NewService builds a batch service. A nil sink discards events.
func NewService(sink events.Sink, logger *slog.Logger) *Service {
	if sink == nil {
		sink = events.Nop
	}
	return &Service{sink: sink, logger: logger}
}

// Run processes r to completion with a fresh engine.
func (s *Service) Run(ctx context.Context, name string, r io.Reader) (Result, error) {
	res := Result{RunID: uuid.NewString(), Source: name, StartedAt: time.Now().UTC()}

	sink := s.sink
	if scoped, ok := sink.(events.RunScoped); ok {
		sink = scoped.ForRun(res.RunID)
	}

	e := ledger.New(sink)
	stats, err := ingest.Process(ctx, r, e, sink)
	res.Stats = stats
	if err != nil {
		sink.Record(events.ExternalErr(fmt.Sprintf("%s: %v", name, err)))
		return res, fmt.Errorf("process %s: %w", name, err)
	}

	res.Accounts = e.Accounts()
	res.CompletedAt = time.Now().UTC()
	sink.Record(events.ProcessComplete())
	s.log("pass completed", res)
	return res, nil
}

// RunFile opens path and runs it. An unopenable file is reported as an
// external error and no row is processed.
func (s *Service) RunFile(ctx context.Context, path string) (Result, error) {
	f, err := ingest.Open(path)
	if err != nil {
		s.sink.Record(events.ExternalErr(err.Error()))
		return Result{Source: path}, err
	}
	defer f.Close()
	return s.Run(ctx, path, f)
}

// RunAll processes every source concurrently, each on its own engine, and
// merges the resulting account tables. The first failing source cancels the
// others.
func (s *Service) RunAll(ctx context.Context, sources ...Source) (map[uint16]ledger.Account, []Result, error) {
	if len(sources) == 0 {
		return map[uint16]ledger.Account{}, nil, nil
	}

	var (
		mu      sync.Mutex
		merged  = make(map[uint16]ledger.Account)
		results = make([]Result, len(sources))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := s.Run(gctx, src.Name, src.Reader)
			if err != nil {
				return err
			}
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			Merge(merged, res.Accounts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return merged, results, nil
}

// Merge adds src into dst: balances are summed and a client locked in either
// table stays locked.
func Merge(dst, src map[uint16]ledger.Account) {
	for id, acct := range src {
		cur, ok := dst[id]
		if !ok {
			dst[id] = acct
			continue
		}
		cur.Available = cur.Available.Add(acct.Available)
		cur.Held = cur.Held.Add(acct.Held)
		cur.Locked = cur.Locked || acct.Locked
		dst[id] = cur
	}
}

func (s *Service) log(msg string, res Result) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg,
		slog.String("run_id", res.RunID),
		slog.String("source", res.Source),
		slog.Int("rows", res.Stats.Rows),
		slog.Int("accepted", res.Stats.Accepted),
		slog.Int("rejected", res.Stats.Rejected),
		slog.Int("skipped", res.Stats.Skipped),
		slog.Int("accounts", len(res.Accounts)),
		slog.Duration("duration", res.CompletedAt.Sub(res.StartedAt)),
	)
}

// IsSourceUnavailable reports whether err means the input could not be read
// at all.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ingest.ErrSourceUnavailable)
}
