// Package editor holds the draft/save flows for each entity type. Editors
// never touch the live lists: they write through the gateway and the lists
// catch up when the store delivers the change.
package editor

import (
	"context"
	"strings"
	"time"
)

// Writer is the write side of a gateway collection
type Writer[T any] interface {
	Create(ctx context.Context, item T) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// SplitList turns "Go, SQL, ,Docker" into [Go SQL Docker]
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList is the inverse of SplitList for display in a form
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}
