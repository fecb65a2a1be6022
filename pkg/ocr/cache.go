package ocr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// State is the lifecycle of the cached result for the displayed image.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Outcome is delivered once per Load. Stale is set when a newer Load or a
// Clear superseded the request before it resolved; the result was dropped.
type Outcome struct {
	ImageID string
	Result  *Result
	Err     error
	Stale   bool
}

// Completed reports whether the request produced the current result.
func (o Outcome) Completed() bool {
	return !o.Stale && o.Err == nil
}

// Snapshot is a consistent copy of the cache state.
type Snapshot struct {
	ImageID string
	State   State
	Result  *Result
	Index   *Index
	Err     error
}

type requestTag struct {
	imageID string
	seq     uint64
}

// Cache holds the most recent OCR result for the currently displayed image.
// At most one request is current; older requests resolve into Stale outcomes.
type Cache struct {
	analyzer Analyzer
	config   Config
	notifier Notifier
	onChange func()

	mu      sync.Mutex
	current requestTag
	state   State
	result  *Result
	index   *Index
	err     error
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithNotifier reports loading and failures to the user. The notifier is
// called with the cache lock held and must not call back into the cache.
func WithNotifier(n Notifier) CacheOption {
	return func(c *Cache) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithOnChange is called after every state transition, outside the cache lock.
func WithOnChange(fn func()) CacheOption {
	return func(c *Cache) {
		c.onChange = fn
	}
}

// NewCache creates an idle cache backed by analyzer.
func NewCache(analyzer Analyzer, config Config, opts ...CacheOption) *Cache {
	c := &Cache{
		analyzer: analyzer,
		config:   config,
		notifier: NopNotifier{},
		index:    NewIndex(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load starts analysis of the image identified by imageID. Any previous
// result is discarded immediately, so nothing stale is drawn while loading.
// The returned channel receives exactly one Outcome and is then closed.
func (c *Cache) Load(ctx context.Context, imageID, imageDataURI string) <-chan Outcome {
	out := make(chan Outcome, 1)

	c.mu.Lock()
	tag := requestTag{imageID: imageID, seq: c.current.seq + 1}
	c.current = tag
	c.state = StateLoading
	c.result = nil
	c.index = NewIndex(nil)
	c.err = nil
	c.notifier.SetLoading(true)
	c.mu.Unlock()

	slog.Debug("OCR analysis started", "image_id", imageID, "provider", c.analyzer.Name(), "seq", tag.seq)
	c.changed()

	go func() {
		if c.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()
		}
		result, err := c.analyzer.Analyze(ctx, c.config, imageDataURI)
		out <- c.resolve(tag, result, err)
		close(out)
	}()

	return out
}

func (c *Cache) resolve(tag requestTag, result *Result, err error) Outcome {
	c.mu.Lock()
	if c.current != tag {
		c.mu.Unlock()
		slog.Debug("Discarding stale OCR result", "image_id", tag.imageID, "seq", tag.seq)
		return Outcome{ImageID: tag.imageID, Result: result, Err: err, Stale: true}
	}

	if err != nil {
		c.state = StateFailed
		c.err = err
	} else {
		if result == nil {
			result = &Result{}
		}
		c.state = StateReady
		c.result = result
		c.index = NewIndex(result)
	}
	words := c.index.Len()
	c.notifier.SetLoading(false)
	if err != nil {
		c.notifier.NotifyError(err)
	}
	c.mu.Unlock()

	if err != nil {
		slog.Warn("OCR analysis failed", "image_id", tag.imageID, "err", err)
	} else {
		slog.Info("OCR analysis completed", "image_id", tag.imageID, "words", words)
	}
	c.changed()

	return Outcome{ImageID: tag.imageID, Result: result, Err: err}
}

// Clear discards the result and invalidates any in-flight request.
func (c *Cache) Clear() {
	c.mu.Lock()
	wasLoading := c.state == StateLoading
	c.current = requestTag{seq: c.current.seq + 1}
	c.state = StateIdle
	c.result = nil
	c.index = NewIndex(nil)
	c.err = nil
	if wasLoading {
		c.notifier.SetLoading(false)
	}
	c.mu.Unlock()

	c.changed()
}

// Snapshot returns the current state under one lock acquisition.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ImageID: c.current.imageID,
		State:   c.state,
		Result:  c.result,
		Index:   c.index,
		Err:     c.err,
	}
}

// State returns the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the result for the current image, or nil.
func (c *Cache) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Index returns the hit-test index of the current result. It is never nil.
func (c *Cache) Index() *Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Err returns the failure of the last request for the current image.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Cache) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Wait blocks until the outcome arrives or ctx is done.
func Wait(ctx context.Context, ch <-chan Outcome) (Outcome, error) {
	select {
	case o, ok := <-ch:
		if !ok {
			return Outcome{}, errors.New("outcome channel closed")
		}
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
