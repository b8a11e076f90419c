package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// startListener opens a dedicated connection that LISTENs for writes made by
// any process sharing the database. The listener is not restarted on failure:
// live subscriptions receive the error instead.
func (s *SQLStore) startListener(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect change listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Close(context.Background())
		return fmt.Errorf("failed to listen for changes: %w", err)
	}

	go func() {
		defer conn.Close(context.Background())
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				s.log.Error("change listener stopped", slog.String("error", err.Error()))
				s.broker.failAll(fmt.Errorf("change listener: %w", err))
				return
			}
			s.broker.publish(n.Payload)
		}
	}()

	return nil
}
