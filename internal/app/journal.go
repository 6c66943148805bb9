package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mirajournal/pkg/domain"
)

// EntryInput is the payload for creating a journal entry.
type EntryInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Mood      string `json:"mood"`
	MoodScore *int   `json:"moodScore"`
	Private   bool   `json:"isPrivate"`
}

// EntryUpdate is the payload for editing an entry. Nil fields are left
// unchanged.
type EntryUpdate struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Mood      *string `json:"mood"`
	MoodScore *int    `json:"moodScore"`
	Private   *bool   `json:"isPrivate"`
}

// CreateEntry validates and persists a journal entry, then enqueues a
// reply job. Enqueue failure is logged, never surfaced: the entry itself
// is already saved and the author should not see their journaling fail
// because the AI pipeline is down.
func (a *App) CreateEntry(ctx context.Context, ownerID string, in EntryInput) (domain.Entry, string, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.Entry{}, "", validationErr("entry content is required")
	}
	if in.MoodScore != nil && (*in.MoodScore < 1 || *in.MoodScore > 5) {
		return domain.Entry{}, "", validationErr("moodScore must be between 1 and 5")
	}
	now := time.Now().UTC()
	entry := domain.Entry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(in.Title),
		Content:   content,
		Mood:      strings.TrimSpace(in.Mood),
		MoodScore: in.MoodScore,
		Private:   in.Private,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateEntry(entry); err != nil {
		return domain.Entry{}, "", fmt.Errorf("create entry: %w", err)
	}

	jobID := a.enqueueReply(ctx, entry.ID, domain.ReplyInitial, "")
	return entry, jobID, nil
}

// ListEntries returns the owner's entries with their replies, newest
// entry first, newest reply first within an entry.
func (a *App) ListEntries(ctx context.Context, ownerID string) ([]domain.EntryWithReplies, error) {
	entries, err := a.store.ListEntriesByOwner(ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	res := make([]domain.EntryWithReplies, 0, len(entries))
	for _, e := range entries {
		replies, err := a.store.ListRepliesForEntry(e.ID)
		if err != nil {
			return nil, fmt.Errorf("list replies: %w", err)
		}
		res = append(res, domain.EntryWithReplies{Entry: e, Replies: replies})
	}
	return res, nil
}

// GetEntry returns one entry with replies. Foreign entries are reported
// as not found, never as forbidden, to avoid leaking their existence.
func (a *App) GetEntry(ctx context.Context, ownerID, entryID string) (domain.EntryWithReplies, error) {
	entry, err := a.ownedEntry(ownerID, entryID)
	if err != nil {
		return domain.EntryWithReplies{}, err
	}
	replies, err := a.store.ListRepliesForEntry(entry.ID)
	if err != nil {
		return domain.EntryWithReplies{}, fmt.Errorf("list replies: %w", err)
	}
	return domain.EntryWithReplies{Entry: entry, Replies: replies}, nil
}

// UpdateEntry edits an entry that has no replies yet. Once a reply
// references the entry it is immutable.
func (a *App) UpdateEntry(ctx context.Context, ownerID, entryID string, in EntryUpdate) (domain.Entry, error) {
	entry, err := a.ownedEntry(ownerID, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	count, err := a.store.CountRepliesForEntry(entry.ID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("count replies: %w", err)
	}
	if count > 0 {
		return domain.Entry{}, ErrEntryImmutable
	}

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return domain.Entry{}, validationErr("entry content is required")
		}
		entry.Content = content
	}
	if in.Title != nil {
		entry.Title = strings.TrimSpace(*in.Title)
	}
	if in.Mood != nil {
		entry.Mood = strings.TrimSpace(*in.Mood)
	}
	if in.MoodScore != nil {
		if *in.MoodScore < 1 || *in.MoodScore > 5 {
			return domain.Entry{}, validationErr("moodScore must be between 1 and 5")
		}
		entry.MoodScore = in.MoodScore
	}
	if in.Private != nil {
		entry.Private = *in.Private
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := a.store.UpdateEntry(entry); err != nil {
		return domain.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

// AnswerFollowUp records the user's answer to a follow-up question by
// enqueueing a follow_up reply job for the entry.
func (a *App) AnswerFollowUp(ctx context.Context, ownerID, entryID, answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", validationErr("answer is required")
	}
	entry, err := a.ownedEntry(ownerID, entryID)
	if err != nil {
		return "", err
	}
	jobID := a.enqueueReply(ctx, entry.ID, domain.ReplyFollowUp, answer)
	return jobID, nil
}

func (a *App) ownedEntry(ownerID, entryID string) (domain.Entry, error) {
	entry, found, err := a.store.GetEntry(entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	if !found || entry.OwnerID != ownerID {
		return domain.Entry{}, ErrNotFound
	}
	return entry, nil
}

func (a *App) enqueueReply(ctx context.Context, entryID string, kind domain.ReplyKind, answer string) string {
	if a.queue == nil {
		a.logger.Warn("reply queue not configured, skipping reply generation", "entry_id", entryID)
		return ""
	}
	job, err := a.queue.Enqueue(ctx, entryID, string(kind), answer)
	if err != nil {
		a.logger.Error("enqueue reply job", "entry_id", entryID, "kind", string(kind), "error", err)
		return ""
	}
	return job.ID
}
