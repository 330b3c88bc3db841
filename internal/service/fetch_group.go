package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/classtrack/portal-api/pkg/classtrack"
)

// errDegradedOnly marks a stage that produced usable (if partial) data and
// only needs the degraded marker recorded.
var errDegradedOnly = errors.New("service: stage degraded")

type stageFailure struct {
	stage string
	err   error
}

func (e *stageFailure) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageFailure) Unwrap() error { return e.err }

// stageError tags a fetch error with the page stage it belongs to.
func stageError(stage string, err error) error {
	return &stageFailure{stage: stage, err: err}
}

// fetchGroup runs independent page fetches in parallel. A stage-tagged
// failure degrades that stage instead of failing the page; an expired token
// fails the whole page so the client re-authenticates.
type fetchGroup struct {
	group *errgroup.Group

	mu       sync.Mutex
	degraded []string
}

func newFetchGroup(ctx context.Context) (*fetchGroup, context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	return &fetchGroup{group: group}, groupCtx
}

func (g *fetchGroup) Go(fn func() error) {
	g.group.Go(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		var stage *stageFailure
		if !errors.As(err, &stage) {
			return err
		}
		if errors.Is(stage.err, classtrack.ErrUnauthorized) {
			return stage.err
		}

		g.mu.Lock()
		g.degraded = append(g.degraded, stage.stage)
		g.mu.Unlock()
		return nil
	})
}

// Wait blocks for every fetch and reports the degraded stages in a stable
// order.
func (g *fetchGroup) Wait() ([]string, error) {
	if err := g.group.Wait(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	sort.Strings(g.degraded)
	return g.degraded, nil
}
