package engine

import (
	"context"

	"github.com/rendis/drawsynth/internal/store"
)

// MultiAppender fans one journal event out to several appenders in order.
// Every appender is tried; the first error is returned.
type MultiAppender []EventAppender

func (m MultiAppender) AppendEvent(ctx context.Context, event *store.Event) error {
	var first error
	for _, a := range m {
		if a == nil {
			continue
		}
		if err := a.AppendEvent(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
