package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mirajournal/pkg/domain"
)

const (
	insightShortfallMessage = "Need at least 3 journal entries to generate insights"

	strengthConfidence   = 90
	growthAreaConfidence = 85
)

// InsightReport is the result of a generation run. Message is set only
// on the shortfall path; Recommendations come back from the AI but are
// not persisted.
type InsightReport struct {
	Message         string           `json:"message,omitempty"`
	Insights        []domain.Insight `json:"insights"`
	Recommendations []string         `json:"recommendations"`
}

// GenerateInsights runs the longitudinal analysis over the user's most
// recent entries and persists the findings. Fewer than 3 entries is a
// shortfall, not an error: nothing is written and the message says why.
func (a *App) GenerateInsights(ctx context.Context, ownerID string) (InsightReport, error) {
	entries, err := a.store.ListEntriesByOwner(ownerID, a.insightWindow)
	if err != nil {
		return InsightReport{}, fmt.Errorf("list entries: %w", err)
	}
	if len(entries) < minEntriesForInsights {
		return InsightReport{
			Message:         insightShortfallMessage,
			Insights:        []domain.Insight{},
			Recommendations: []string{},
		}, nil
	}

	// Entries arrive newest first; the analysis reads them oldest first.
	contents := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		contents = append(contents, entries[i].Content)
	}

	analysis, err := a.therapist.AnalyzeEntries(ctx, contents)
	if err != nil {
		return InsightReport{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	now := time.Now().UTC()
	insights := make([]domain.Insight, 0, len(analysis.Patterns)+len(analysis.Strengths)+len(analysis.GrowthAreas))
	for _, p := range analysis.Patterns {
		insights = append(insights, domain.Insight{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Category:    domain.InsightPattern,
			Title:       p.Type,
			Description: p.Description,
			Confidence:  p.Confidence,
			CreatedAt:   now,
		})
	}
	for _, s := range analysis.Strengths {
		insights = append(insights, domain.Insight{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Category:    domain.InsightStrength,
			Title:       "Personal strength",
			Description: s,
			Confidence:  strengthConfidence,
			CreatedAt:   now,
		})
	}
	for _, g := range analysis.GrowthAreas {
		insights = append(insights, domain.Insight{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Category:    domain.InsightGrowthArea,
			Title:       "Growth area",
			Description: g,
			Confidence:  growthAreaConfidence,
			CreatedAt:   now,
		})
	}
	for _, ins := range insights {
		if err := a.store.CreateInsight(ins); err != nil {
			return InsightReport{}, fmt.Errorf("save insight: %w", err)
		}
	}
	return InsightReport{
		Insights:        insights,
		Recommendations: analysis.Recommendations,
	}, nil
}

// ListInsights returns the owner's stored insights, newest first.
func (a *App) ListInsights(ctx context.Context, ownerID string) ([]domain.Insight, error) {
	insights, err := a.store.ListInsightsByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return insights, nil
}
