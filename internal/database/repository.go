package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/khrees2412/applytrack/internal/apperr"
)

// metaKeys are assigned by the store and never accepted from callers
var metaKeys = []string{"id", "userId", "createdAt"}

// Snapshot is the full, unordered document list of one owner in one collection.
// A snapshot with Err set is the last one a subscription delivers.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Subscription delivers snapshots in the order the store produced them
type Subscription struct {
	updates <-chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
}

// Updates returns the snapshot channel. It is closed when the subscription ends.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Close ends the subscription and waits for its goroutine to exit
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// NewSubscription runs produce on its own goroutine. emit blocks until the
// consumer takes the snapshot and reports false once the subscription is closed.
func NewSubscription(ctx context.Context, produce func(ctx context.Context, emit func(Snapshot) bool)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		produce(ctx, func(snap Snapshot) bool {
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return &Subscription{updates: out, cancel: cancel, done: done}
}

// Subscribe opens a live query over collection filtered to ownerID. The first
// snapshot is the current list; each committed write to the collection yields
// a fresh one.
func (s *SQLStore) Subscribe(ctx context.Context, collection, ownerID string) (*Subscription, error) {
	if collection == "" || ownerID == "" {
		return nil, apperr.New(apperr.ErrInvalidArgument, "subscribe", "collection and owner are required")
	}

	w := s.broker.register(collection)
	return NewSubscription(ctx, func(ctx context.Context, emit func(Snapshot) bool) {
		defer s.broker.unregister(collection, w)

		for {
			docs, err := s.list(ctx, collection, ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error("subscription query failed",
					slog.String("collection", collection),
					slog.String("error", err.Error()),
				)
				emit(Snapshot{Err: err})
				return
			}
			if !emit(Snapshot{Docs: docs}) {
				return
			}

			select {
			case <-w.wake:
			case err := <-w.fail:
				emit(Snapshot{Err: err})
				return
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}), nil
}

func (s *SQLStore) list(ctx context.Context, collection, ownerID string) ([]Document, error) {
	rows, err := sq.Select("id", "user_id", "created_at", "data").
		From("documents").
		Where(sq.Eq{"collection": collection, "user_id": ownerID}).
		PlaceholderFormat(s.dialect.placeholder).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc       Document
			createdAt sql.NullTime
			data      string
		)
		if err := rows.Scan(&doc.ID, &doc.UserID, &createdAt, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		if createdAt.Valid {
			t := createdAt.Time
			doc.CreatedAt = &t
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Create stores data as a new document owned by ownerID
func (s *SQLStore) Create(ctx context.Context, collection, ownerID string, data json.RawMessage) (Document, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Document{}, err
	}
	stripMeta(fields)
	clean, err := json.Marshal(fields)
	if err != nil {
		return Document{}, err
	}

	now := s.now().UTC()
	doc := Document{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		CreatedAt: &now,
		Data:      clean,
	}

	_, err = sq.Insert("documents").
		Columns("id", "collection", "user_id", "data", "created_at", "updated_at").
		Values(doc.ID, collection, ownerID, string(clean), now, now).
		PlaceholderFormat(s.dialect.placeholder).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("insert into %s: %w", collection, err)
	}

	s.changed(ctx, collection)
	return doc, nil
}

// Update merges fields into the stored object. Top-level keys replace existing
// values; keys not mentioned are kept.
func (s *SQLStore) Update(ctx context.Context, collection, ownerID, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	where := sq.Eq{"id": id, "collection": collection, "user_id": ownerID}

	var current string
	err = sq.Select("data").
		From("documents").
		Where(where).
		PlaceholderFormat(s.dialect.placeholder).
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.ErrNotFound, "update", fmt.Errorf("%s/%s", collection, id))
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", collection, id, err)
	}

	merged, err := mergeFields(json.RawMessage(current), fields)
	if err != nil {
		return err
	}

	_, err = sq.Update("documents").
		Set("data", string(merged)).
		Set("updated_at", s.now().UTC()).
		Where(where).
		PlaceholderFormat(s.dialect.placeholder).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.changed(ctx, collection)
	return nil
}

// Delete removes one document owned by ownerID
func (s *SQLStore) Delete(ctx context.Context, collection, ownerID, id string) error {
	res, err := sq.Delete("documents").
		Where(sq.Eq{"id": id, "collection": collection, "user_id": ownerID}).
		PlaceholderFormat(s.dialect.placeholder).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if err := requireAffected(res, "delete", collection, id); err != nil {
		return err
	}

	s.changed(ctx, collection)
	return nil
}

// requireAffected fails when the statement touched no row or the driver
// cannot tell
func requireAffected(res sql.Result, op, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
	}
	if n == 0 {
		return apperr.Wrap(apperr.ErrNotFound, op, fmt.Errorf("%s/%s", collection, id))
	}
	return nil
}

// changed wakes local subscribers and, on postgres, every other process
func (s *SQLStore) changed(ctx context.Context, collection string) {
	if s.driver == DriverPostgres {
		if _, err := s.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", notifyChannel, collection); err != nil {
			s.log.Warn("notify failed", slog.String("collection", collection), slog.String("error", err.Error()))
		}
	}
	s.broker.publish(collection)
}

func decodeObject(data json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "decode document", err)
	}
	if fields == nil {
		return nil, apperr.New(apperr.ErrInvalidArgument, "decode document", "document must be a JSON object")
	}
	return fields, nil
}

func stripMeta(fields map[string]json.RawMessage) {
	for _, k := range metaKeys {
		delete(fields, k)
	}
}

func mergeFields(current json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	fields, err := decodeObject(current)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", k, err)
		}
		fields[k] = raw
	}
	stripMeta(fields)
	return json.Marshal(fields)
}

// SetClock replaces the time source used for server timestamps
func (s *SQLStore) SetClock(now func() time.Time) {
	s.now = now
}
