package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mirajournal/pkg/domain"
)

// RequestAdvice records an advice request, generates the answer
// synchronously, and stores it on the request row. If generation fails
// the row stays with an empty response and the error surfaces.
func (a *App) RequestAdvice(ctx context.Context, ownerID, topic, request string) (domain.AdviceRequest, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return domain.AdviceRequest{}, validationErr("advice request text is required")
	}
	topic = strings.TrimSpace(topic)

	row := domain.AdviceRequest{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Topic:     topic,
		Request:   request,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateAdviceRequest(row); err != nil {
		return domain.AdviceRequest{}, fmt.Errorf("create advice request: %w", err)
	}

	history, err := a.entryContext(ownerID, "", a.adviceContextWindow)
	if err != nil {
		return domain.AdviceRequest{}, fmt.Errorf("select context: %w", err)
	}

	advice, err := a.therapist.Advise(ctx, topic, request, history)
	if err != nil {
		return domain.AdviceRequest{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	row.Response = advice.Advice
	row.Techniques = make([]domain.Technique, 0, len(advice.Techniques))
	for _, t := range advice.Techniques {
		row.Techniques = append(row.Techniques, domain.Technique{
			Name:        t.Name,
			Description: t.Description,
			Steps:       t.Steps,
			Duration:    t.Duration,
		})
	}
	row.Plan = advice.PersonalizedPlan
	if err := a.store.UpdateAdviceResponse(row); err != nil {
		return domain.AdviceRequest{}, fmt.Errorf("save advice response: %w", err)
	}
	return row, nil
}

// ListAdvice returns the owner's advice requests, newest first.
func (a *App) ListAdvice(ctx context.Context, ownerID string) ([]domain.AdviceRequest, error) {
	list, err := a.store.ListAdviceByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list advice: %w", err)
	}
	return list, nil
}
