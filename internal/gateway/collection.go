// Package gateway keeps a live, owner-scoped view over one collection of the
// document store. Writes go straight to the store; the view only changes when
// the subscription delivers the store's next snapshot.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/internal/database"
	"github.com/khrees2412/applytrack/pkg/models"
)

// State is what a Collection currently shows
type State[T any] struct {
	Items   []T
	Loading bool
	Err     error
	// Version increases on every change, so callers can recompute derived views
	Version uint64
}

// Collection is a live view over the documents of the bound user in one collection
type Collection[T any] struct {
	store database.Store
	log   *slog.Logger

	mu       sync.Mutex
	name     string
	user     string
	sub      *database.Subscription
	gen      uint64
	state    State[T]
	changed  chan struct{}
	watchers map[int]func(State[T])
	nextID   int
}

// New creates an unbound collection. Nothing is loaded until a user is bound.
func New[T any](store database.Store, name string, log *slog.Logger) *Collection[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Collection[T]{
		store:    store,
		name:     name,
		log:      log.With("component", "gateway"),
		state:    State[T]{Items: []T{}},
		changed:  make(chan struct{}),
		watchers: make(map[int]func(State[T])),
	}
}

// Bind points the collection at name for user. A change of either tears the
// current subscription down and opens a new one; an empty user clears the view.
func (c *Collection[T]) Bind(ctx context.Context, name, user string) error {
	c.mu.Lock()
	if name == c.name && user == c.user && (c.sub != nil || user == "") {
		c.mu.Unlock()
		return nil
	}

	old := c.sub
	c.sub = nil
	c.gen++
	gen := c.gen
	c.name, c.user = name, user

	if user == "" {
		snap := c.setLocked(State[T]{Items: []T{}})
		c.mu.Unlock()
		c.closeSub(old)
		c.notify(snap)
		return nil
	}

	snap := c.setLocked(State[T]{Items: []T{}, Loading: true})
	c.mu.Unlock()
	c.closeSub(old)
	c.notify(snap)

	sub, err := c.store.Subscribe(ctx, name, user)
	if err != nil {
		err = apperr.Wrap(apperr.ErrSubscription, "subscribe "+name, err)
		c.fail(gen, err)
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		// rebound while subscribing
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	go c.consume(gen, sub)
	return nil
}

// SetUser rebinds the current collection name to another user
func (c *Collection[T]) SetUser(ctx context.Context, user string) error {
	c.mu.Lock()
	name := c.name
	c.mu.Unlock()
	return c.Bind(ctx, name, user)
}

// Name returns the bound collection name
func (c *Collection[T]) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// User returns the bound user id, or "" when signed out
func (c *Collection[T]) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// State returns the current view. Items must not be modified.
func (c *Collection[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Watch registers fn to run after every state change and returns a function
// that unregisters it. fn runs on the subscription goroutine.
func (c *Collection[T]) Watch(fn func(State[T])) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Wait blocks until pred holds for the current state or ctx is done
func (c *Collection[T]) Wait(ctx context.Context, pred func(State[T]) bool) (State[T], error) {
	for {
		c.mu.Lock()
		st, ch := c.state, c.changed
		c.mu.Unlock()

		if pred(st) {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Loaded waits for the first snapshot and returns the subscription error, if any
func (c *Collection[T]) Loaded(ctx context.Context) (State[T], error) {
	st, err := c.Wait(ctx, func(s State[T]) bool { return !s.Loading })
	if err != nil {
		return st, err
	}
	return st, st.Err
}

// Create stores item as a new document and returns its id. The view picks the
// document up from the subscription.
func (c *Collection[T]) Create(ctx context.Context, item T) (string, error) {
	name, user, err := c.target("create")
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidArgument, "create", err)
	}
	doc, err := c.store.Create(ctx, name, user, data)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrWrite, "create "+name, err)
	}
	return doc.ID, nil
}

// Update merges fields into document id
func (c *Collection[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	name, user, err := c.target("update")
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, name, user, id, fields); err != nil {
		return apperr.Wrap(apperr.ErrWrite, "update "+name, err)
	}
	return nil
}

// Delete removes document id
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	name, user, err := c.target("delete")
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, name, user, id); err != nil {
		return apperr.Wrap(apperr.ErrWrite, "delete "+name, err)
	}
	return nil
}

// Close tears the subscription down. The last state stays readable.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	old := c.sub
	c.sub = nil
	c.gen++
	c.mu.Unlock()
	c.closeSub(old)
}

func (c *Collection[T]) target(op string) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == "" {
		return "", "", apperr.New(apperr.ErrUnauthenticated, op, "sign in first")
	}
	return c.name, c.user, nil
}

func (c *Collection[T]) consume(gen uint64, sub *database.Subscription) {
	for snap := range sub.Updates() {
		if snap.Err != nil {
			c.fail(gen, apperr.Wrap(apperr.ErrSubscription, "subscribe "+c.Name(), snap.Err))
			return
		}
		c.apply(gen, snap.Docs)
	}
}

func (c *Collection[T]) apply(gen uint64, docs []database.Document) {
	items := c.decode(docs)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	snap := c.setLocked(State[T]{Items: items})
	c.mu.Unlock()
	c.notify(snap)
}

// fail records a subscription error. It is kept until the next rebind.
func (c *Collection[T]) fail(gen uint64, err error) {
	c.log.Error("subscription failed", slog.String("collection", c.Name()), slog.String("error", err.Error()))

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	snap := c.setLocked(State[T]{Items: c.state.Items, Err: err})
	c.mu.Unlock()
	c.notify(snap)
}

// setLocked replaces the state and wakes waiters. Callers hold mu.
func (c *Collection[T]) setLocked(st State[T]) State[T] {
	st.Version = c.state.Version + 1
	c.state = st
	close(c.changed)
	c.changed = make(chan struct{})
	return st
}

func (c *Collection[T]) notify(st State[T]) {
	c.mu.Lock()
	fns := make([]func(State[T]), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (c *Collection[T]) closeSub(sub *database.Subscription) {
	if sub != nil {
		sub.Close()
	}
}

// decode orders documents newest first and overlays the store-assigned fields
func (c *Collection[T]) decode(docs []database.Document) []T {
	sorted := make([]database.Document, len(docs))
	copy(sorted, docs)
	SortNewestFirst(sorted)

	items := make([]T, 0, len(sorted))
	for _, doc := range sorted {
		item, err := Decode[T](doc)
		if err != nil {
			c.log.Warn("skipping malformed document", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		items = append(items, item)
	}
	return items
}

// SortNewestFirst orders documents by creation time descending. Documents
// without a creation time go last, keeping their relative order.
func SortNewestFirst(docs []database.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].CreatedAt, docs[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// Decode turns a stored document into T. T is expected to embed models.Meta.
func Decode[T any](doc database.Document) (T, error) {
	var item T
	if err := json.Unmarshal(doc.Data, &item); err != nil {
		return item, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	meta, err := json.Marshal(models.Meta{ID: doc.ID, UserID: doc.UserID, CreatedAt: doc.CreatedAt})
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(meta, &item); err != nil {
		return item, fmt.Errorf("decode %s meta: %w", doc.ID, err)
	}
	return item, nil
}
