package app

import (
	"context"
	"fmt"

	"mirajournal/pkg/ai"
)

const noMoodDataMessage = "No mood data available"

// MoodReport is the mood analytics result. Message is set only when the
// user has no mood-labeled entries; nothing is persisted either way.
type MoodReport struct {
	Message         string   `json:"message,omitempty"`
	Trend           string   `json:"trend,omitempty"`
	PredominantMood string   `json:"predominantMood,omitempty"`
	Insights        []string `json:"insights,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// MoodAnalytics summarizes mood trends across the owner's mood-labeled
// entries. With no mood data it returns an informational message without
// calling the AI.
func (a *App) MoodAnalytics(ctx context.Context, ownerID string) (MoodReport, error) {
	entries, err := a.store.ListEntriesByOwner(ownerID, 0)
	if err != nil {
		return MoodReport{}, fmt.Errorf("list entries: %w", err)
	}

	// Entries arrive newest first; samples go to the AI oldest first.
	samples := make([]ai.MoodSample, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Mood == "" {
			continue
		}
		samples = append(samples, ai.MoodSample{
			Mood: e.Mood,
			Date: e.CreatedAt.Format("2006-01-02"),
			Note: truncateRunes(e.Content, 100),
		})
	}
	if len(samples) == 0 {
		return MoodReport{Message: noMoodDataMessage}, nil
	}

	report, err := a.therapist.AnalyzeMood(ctx, samples)
	if err != nil {
		return MoodReport{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	return MoodReport{
		Trend:           report.Trend,
		PredominantMood: report.PredominantMood,
		Insights:        report.Insights,
		Recommendations: report.Recommendations,
	}, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
