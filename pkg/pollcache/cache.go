package pollcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pandaskiing/depositview/pkg/retry"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the current value of a query.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Listener is notified after every successful fetch.
type Listener func(key string, updatedAt time.Time)

type entry struct {
	key   string
	opts  Options
	fetch func(ctx context.Context) (any, error)

	mu        sync.RWMutex
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	loading   bool
	stale     bool

	scheduled bool
}

type snapshot struct {
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	loading   bool
}

func (e *entry) snapshot() snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot{data: e.data, hasData: e.hasData, err: e.err, updatedAt: e.updatedAt, loading: e.loading}
}

func (e *entry) fresh(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasData && e.err == nil && !e.stale && now.Sub(e.updatedAt) < e.opts.StaleTime
}

// Cache holds the latest result of every query and refreshes them in the background.
type Cache struct {
	logger  *zap.Logger
	entries *xsync.Map[string, *entry]
	group   singleflight.Group
	cron    *cron.Cron
	now     func() time.Time

	listenersMu sync.RWMutex
	listeners   []Listener

	baseCtx context.Context
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache. Call Start to enable background refresh.
func New(logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		logger:  logger,
		entries: xsync.NewMap[string, *entry](),
		now:     time.Now,
		baseCtx: ctx,
		cancel:  cancel,
	}
	c.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})))
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins running the background refresh schedules.
func (c *Cache) Start() {
	c.cron.Start()
	c.logger.Info("[pollcache] background refresh started", zap.Int("keys", c.entries.Size()))
}

// Stop cancels in-flight fetches, halts background refresh and waits for
// running refreshes to finish.
func (c *Cache) Stop() {
	c.cancel()
	<-c.cron.Stop().Done()
	c.bg.Wait()
}

// OnUpdate registers a listener for successful fetches.
func (c *Cache) OnUpdate(l Listener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenersMu.Unlock()
}

// Invalidate marks a key stale so the next Get fetches.
func (c *Cache) Invalidate(key Key) {
	if e, ok := c.entries.Load(key.String()); ok {
		e.mu.Lock()
		e.stale = true
		e.mu.Unlock()
	}
}

// InvalidateName marks every key of the named query stale, whatever its params.
func (c *Cache) InvalidateName(name string) {
	c.entries.Range(func(k string, e *entry) bool {
		if k == name || strings.HasPrefix(k, name+":") {
			e.mu.Lock()
			e.stale = true
			e.mu.Unlock()
		}
		return true
	})
}

// Keys returns the ids of every registered query.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, c.entries.Size())
	c.entries.Range(func(k string, _ *entry) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Get returns the cached result for key. Stale data is returned as is while a
// refetch runs in the background; only a key with no data yet waits for the
// fetch. The first Get of a key registers its background refresh. A failed
// fetch keeps the previous data and reports the error alongside it.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch FetchFunc[T], opts Options) Result[T] {
	e := c.register(key, opts, func(ctx context.Context) (any, error) { return fetch(ctx) })

	if !e.fresh(c.now()) {
		if e.snapshot().hasData {
			c.bg.Add(1)
			go func() {
				defer c.bg.Done()
				c.load(c.baseCtx, e, false)
			}()
		} else {
			c.load(ctx, e, false)
		}
	}
	return toResult[T](e.snapshot())
}

// Peek returns whatever is cached for key without fetching. An unknown key
// reports IsLoading.
func Peek[T any](c *Cache, key Key) Result[T] {
	e, ok := c.entries.Load(key.String())
	if !ok {
		return Result[T]{IsLoading: true}
	}
	return toResult[T](e.snapshot())
}

func toResult[T any](s snapshot) Result[T] {
	var r Result[T]
	if s.hasData {
		if v, ok := s.data.(T); ok {
			r.Data = v
		}
	}
	r.Err = s.err
	r.IsError = s.err != nil
	r.IsLoading = !s.hasData && s.err == nil
	r.UpdatedAt = s.updatedAt
	return r
}

func (c *Cache) register(key Key, opts Options, fetch func(ctx context.Context) (any, error)) *entry {
	id := key.String()
	e, _ := c.entries.Compute(id, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if loaded {
			return old, xsync.UpdateOp
		}
		return &entry{key: id, opts: opts.withDefaults(), fetch: fetch}, xsync.UpdateOp
	})

	e.mu.Lock()
	schedule := !e.scheduled && e.opts.RefetchInterval > 0
	e.scheduled = true
	e.mu.Unlock()

	if schedule {
		spec := fmt.Sprintf("@every %s", e.opts.RefetchInterval)
		if _, err := c.cron.AddFunc(spec, func() { c.load(c.baseCtx, e, true) }); err != nil {
			c.logger.Error("[pollcache] schedule refresh", zap.String("key", id), zap.Error(err))
		}
	}
	return e
}

// load runs at most one fetch per key at a time. Callers arriving while a
// fetch is in flight wait for it. The caller's ctx only bounds the wait.
func (c *Cache) load(ctx context.Context, e *entry, force bool) {
	ch := c.group.DoChan(e.key, func() (any, error) {
		if !force && e.fresh(c.now()) {
			return nil, nil
		}
		c.refresh(e)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (c *Cache) refresh(e *entry) {
	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()

	fctx, cancel := context.WithTimeout(c.baseCtx, e.opts.Timeout)
	defer cancel()

	var data any
	cfg := retry.Retries(e.opts.Retry, e.opts.RetryDelay)
	err := retry.WithBackoff(fctx, cfg, c.logger, e.key, func() error {
		v, err := e.fetch(fctx)
		if err != nil {
			return err
		}
		data = v
		return nil
	})

	now := c.now()
	e.mu.Lock()
	e.loading = false
	if err != nil {
		e.err = err
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.stale = false
		e.updatedAt = now
	}
	e.mu.Unlock()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("[pollcache] fetch failed", zap.String("key", e.key), zap.Error(err))
		}
		return
	}

	c.listenersMu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.listenersMu.RUnlock()
	for _, l := range listeners {
		l(e.key, now)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
