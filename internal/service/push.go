package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opentutorials-org/otu-sync/internal/cache"
	"github.com/opentutorials-org/otu-sync/internal/config"
	"github.com/opentutorials-org/otu-sync/internal/errs"
	"github.com/opentutorials-org/otu-sync/internal/model"
	"github.com/opentutorials-org/otu-sync/internal/repository"
)

// Per-operation error policies of the reconciler.
var (
	createPolicy = errs.SwallowIfCode(errs.CodeUniqueViolation)
	updatePolicy = errs.Fatal
	deletePolicy = errs.Swallow
)

// Pusher applies a client push batch for one user.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, lastPulledAt int64, batch model.SyncBatch) (PushStats, error)
}

// Stores groups the repositories the push touches.
type Stores struct {
	Pages   repository.PageRepository
	Folders repository.FolderRepository
	Alarms  repository.AlarmRepository
	Jobs    repository.JobRepository
}

// EntityStats counts one entity group of a push.
type EntityStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	// Fallbacks counts creates that hit an existing row and were applied as updates.
	Fallbacks int `json:"fallbacks"`
	// Revived counts updates of unknown ids applied as creates.
	Revived int `json:"revived"`
}

// PushStats counts the records processed per entity group.
type PushStats struct {
	Folder EntityStats `json:"folder"`
	Page   EntityStats `json:"page"`
	Alarm  EntityStats `json:"alarm"`
}

// PushService reconciles folder, page and alarm mutations against the store.
type PushService struct {
	stores Stores
	cache  cache.ShareCache
	jobs   embeddingJobs
	rt     config.RuntimeConfig
	log    *zap.Logger
}

// Option customizes a PushService.
type Option func(*PushService)

// WithClock overrides the clock used for job scheduling.
func WithClock(now func() time.Time) Option {
	return func(s *PushService) { s.jobs.now = now }
}

// NewPushService wires the reconciler. A nil cache disables share invalidation.
func NewPushService(st Stores, c cache.ShareCache, rt config.RuntimeConfig, log *zap.Logger, opts ...Option) *PushService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &PushService{
		stores: st,
		cache:  c,
		jobs:   embeddingJobs{repo: st.Jobs, delay: rt.EmbeddingDelay, now: time.Now},
		rt:     rt,
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Push applies folder, then page, then alarm mutations; inside each group created,
// then updated, then deleted. The first fatal error stops the push and nothing
// already written is rolled back. Stats are returned even on error.
func (s *PushService) Push(ctx context.Context, userID uuid.UUID, lastPulledAt int64, batch model.SyncBatch) (PushStats, error) {
	if userID == uuid.Nil {
		return PushStats{}, errs.ErrNoUser
	}

	var folder, page, alarm tally
	sc := scope{s: s, userID: userID, lastPulledAt: lastPulledAt}
	stats := func() PushStats {
		return PushStats{Folder: folder.snapshot(), Page: page.snapshot(), Alarm: alarm.snapshot()}
	}

	if batch.Folder != nil {
		r := &folderReconciler{sc}
		if err := s.apply(ctx, r, batch.Folder, &folder); err != nil {
			return stats(), err
		}
	}

	pr := &pageReconciler{scope: sc, batchType: batch.Page.Type}
	if err := s.apply(ctx, pr, &batch.Page.SyncEntityBatch, &page); err != nil {
		return stats(), err
	}

	if batch.Alarm != nil {
		r := &alarmReconciler{sc}
		if err := s.apply(ctx, r, batch.Alarm, &alarm); err != nil {
			return stats(), err
		}
	}
	return stats(), nil
}

// reconciler is the per-entity store contract used by apply.
type reconciler interface {
	exists(ctx context.Context, id string) (bool, error)
	// create reports false when the row already existed and the insert was swallowed.
	create(ctx context.Context, rec model.Record) (bool, error)
	update(ctx context.Context, rec model.Record) error
	// cancelDelete clears a tombstone; a no-op for entities without one.
	cancelDelete(ctx context.Context, id string) error
	remove(ctx context.Context, id string) error
}

func (s *PushService) apply(ctx context.Context, r reconciler, b *model.SyncEntityBatch, t *tally) error {
	if err := each(ctx, s.rt.PushConcurrency, b.Created, model.Record.ID, func(ctx context.Context, rec model.Record) error {
		t.created.Add(1)
		return s.createOrUpdate(ctx, r, rec, t)
	}); err != nil {
		return err
	}

	if err := each(ctx, s.rt.PushConcurrency, b.Updated, model.Record.ID, func(ctx context.Context, rec model.Record) error {
		t.updated.Add(1)
		ok, err := r.exists(ctx, rec.ID())
		if err != nil {
			return err
		}
		if ok {
			return r.update(ctx, rec)
		}
		t.revived.Add(1)
		if err := r.cancelDelete(ctx, rec.ID()); err != nil {
			return err
		}
		return s.createOrUpdate(ctx, r, rec, t)
	}); err != nil {
		return err
	}

	return each(ctx, s.rt.PushConcurrency, b.Deleted, func(id string) string { return id }, func(ctx context.Context, id string) error {
		t.deleted.Add(1)
		return r.remove(ctx, id)
	})
}

func (s *PushService) createOrUpdate(ctx context.Context, r reconciler, rec model.Record, t *tally) error {
	inserted, err := r.create(ctx, rec)
	if err != nil || inserted {
		return err
	}
	t.fallbacks.Add(1)
	return r.update(ctx, rec)
}

// fatal logs a store failure with its context and wraps it for the caller.
func (s *PushService) fatal(entity, op, id string, userID uuid.UUID, err error) error {
	s.log.Error("sync push failed",
		zap.String("entity", entity),
		zap.String("op", op),
		zap.String("id", id),
		zap.String("user_id", userID.String()),
		zap.Error(err))
	return fmt.Errorf("%s %s %s: %w", op, entity, id, err)
}

// each runs fn over items in order. With limit > 1 items are grouped by key and
// groups run concurrently up to limit at a time; items sharing a key still run
// in order on one worker. The first error cancels the remaining ones.
func each[T any](ctx context.Context, limit int, items []T, key func(T) string, fn func(context.Context, T) error) error {
	if limit <= 1 {
		return inOrder(ctx, items, fn)
	}

	var keys []string
	groups := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		group := groups[k]
		g.Go(func() error { return inOrder(gctx, group, fn) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func inOrder[T any](ctx context.Context, items []T, fn func(context.Context, T) error) error {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

type tally struct {
	created, updated, deleted, fallbacks, revived atomic.Int64
}

func (t *tally) snapshot() EntityStats {
	return EntityStats{
		Created:   int(t.created.Load()),
		Updated:   int(t.updated.Load()),
		Deleted:   int(t.deleted.Load()),
		Fallbacks: int(t.fallbacks.Load()),
		Revived:   int(t.revived.Load()),
	}
}
