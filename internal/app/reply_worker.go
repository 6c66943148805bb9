package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mirajournal/pkg/domain"
	"mirajournal/pkg/queue"
)

// ProcessReplyJob is the queue worker handler: it generates and persists
// exactly one Reply for the job's entry. An error return marks the job
// failed; nothing is persisted in that case.
func (a *App) ProcessReplyJob(ctx context.Context, job queue.ReplyJob) error {
	entry, found, err := a.store.GetEntry(job.EntryID)
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}
	if !found {
		return fmt.Errorf("entry %s not found", job.EntryID)
	}

	kind, ok := domain.ParseReplyKind(job.Kind)
	if !ok {
		return fmt.Errorf("unknown reply kind %q", job.Kind)
	}

	history, err := a.entryContext(entry.OwnerID, entry.ID, a.replyContextWindow)
	if err != nil {
		return fmt.Errorf("select context: %w", err)
	}

	text := entry.Content
	if kind == domain.ReplyFollowUp && job.Answer != "" {
		text = entry.Content + "\n\nThe client answered a follow-up question: " + job.Answer
	}

	generated, err := a.therapist.ReplyToEntry(ctx, text, history)
	if err != nil {
		a.logger.Error("generate reply", "entry_id", entry.ID, "kind", job.Kind, "error", err)
		return fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	reply := domain.Reply{
		ID:                uuid.NewString(),
		EntryID:           entry.ID,
		Response:          generated.Response,
		FollowUpQuestions: generated.FollowUpQuestions,
		Insights: domain.ReplyInsights{
			Emotions:    generated.Insights.Emotions,
			Patterns:    generated.Insights.Patterns,
			Suggestions: generated.Insights.Suggestions,
		},
		EmpathyScore: generated.EmpathyScore,
		Kind:         kind,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateReply(reply); err != nil {
		return fmt.Errorf("save reply: %w", err)
	}
	a.logger.Info("reply generated", "entry_id", entry.ID, "reply_id", reply.ID, "kind", string(kind))
	return nil
}
