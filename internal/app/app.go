package app

import (
	"context"
	"errors"
	"log/slog"

	"mirajournal/pkg/ai"
	"mirajournal/pkg/queue"
	"mirajournal/pkg/store"
)

const (
	defaultReplyContextWindow  = 3
	defaultAdviceContextWindow = 5
	defaultInsightWindow       = 10
	minEntriesForInsights      = 3
)

// ReplyEnqueuer pushes reply generation jobs onto the work queue.
type ReplyEnqueuer interface {
	Enqueue(ctx context.Context, entryID, kind, answer string) (queue.ReplyJob, error)
}

// Config wires the application's collaborators.
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Therapist *ai.Therapist
	Queue     ReplyEnqueuer
	Logger    *slog.Logger

	ReplyContextWindow  int
	AdviceContextWindow int
	InsightWindow       int
}

// App implements the journaling workflows on top of the store, the
// session store, the therapist, and the reply queue.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	therapist *ai.Therapist
	queue     ReplyEnqueuer
	logger    *slog.Logger

	replyContextWindow  int
	adviceContextWindow int
	insightWindow       int
}

// New validates the config and builds an App.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Therapist == nil {
		return nil, errors.New("therapist required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	replyWindow := cfg.ReplyContextWindow
	if replyWindow <= 0 {
		replyWindow = defaultReplyContextWindow
	}
	adviceWindow := cfg.AdviceContextWindow
	if adviceWindow <= 0 {
		adviceWindow = defaultAdviceContextWindow
	}
	insightWindow := cfg.InsightWindow
	if insightWindow <= 0 {
		insightWindow = defaultInsightWindow
	}
	return &App{
		store:               cfg.Store,
		sessions:            cfg.Sessions,
		therapist:           cfg.Therapist,
		queue:               cfg.Queue,
		logger:              logger,
		replyContextWindow:  replyWindow,
		adviceContextWindow: adviceWindow,
		insightWindow:       insightWindow,
	}, nil
}

// Sessions exposes the session store for the HTTP auth middleware.
func (a *App) Sessions() store.SessionStore {
	return a.sessions
}

// entryContext returns up to limit prior entry contents for the owner,
// most recent first, excluding the given entry.
func (a *App) entryContext(ownerID, excludeEntryID string, limit int) ([]string, error) {
	entries, err := a.store.ListEntriesByOwner(ownerID, limit+1)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, limit)
	for _, e := range entries {
		if e.ID == excludeEntryID {
			continue
		}
		contents = append(contents, e.Content)
		if len(contents) == limit {
			break
		}
	}
	return contents, nil
}
