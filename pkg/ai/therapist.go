package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Default values applied when the model omits or mangles fields.
const (
	fallbackReply       = "I appreciate you sharing your thoughts with me."
	defaultEmpathyScore = 5
	maxFollowUps        = 4
)

const entrySeparator = "\n\n---\n\n"

const therapistSystemPrompt = `You are Dr. Mira, a warm and experienced therapist. ` +
	`You respond to journal entries with empathy and gentle insight. ` +
	`Always respond with a JSON object containing: "response" (your supportive message), ` +
	`"followUpQuestions" (up to 4 open questions inviting deeper reflection), ` +
	`"insights" (an object with "emotions", "patterns" and "suggestions" string arrays), ` +
	`and "empathyScore" (an integer from 1 to 10 rating the emotional weight of the entry).`

const analysisSystemPrompt = `You are Dr. Mira, a therapist reviewing a client's recent journal entries. ` +
	`Identify recurring themes across the entries as a whole, not per entry. ` +
	`Respond with a JSON object containing: "patterns" (array of objects with "type", ` +
	`"description" and integer "confidence" from 1 to 100), "strengths" (string array), ` +
	`"growthAreas" (string array) and "recommendations" (string array).`

const adviceSystemPrompt = `You are Dr. Mira, a therapist asked for practical guidance. ` +
	`Ground your advice in the client's recent journal entries when provided. ` +
	`Respond with a JSON object containing: "advice" (your main guidance), ` +
	`"techniques" (array of objects with "name", "description", "steps" string array and "duration"), ` +
	`and "personalizedPlan" (a short plan tying the techniques to the client's situation).`

const moodSystemPrompt = `You are Dr. Mira, a therapist reviewing a client's mood history. ` +
	`Respond with a JSON object containing: "trend" (one of "improving", "declining", "stable" or "variable"), ` +
	`"predominantMood" (the most frequent mood), "insights" (string array) and ` +
	`"recommendations" (string array).`

// EntryReply is the structured therapeutic reply to a single journal entry.
type EntryReply struct {
	Response          string        `json:"response"`
	FollowUpQuestions []string      `json:"followUpQuestions"`
	Insights          ReplyInsights `json:"insights"`
	EmpathyScore      int           `json:"empathyScore"`
}

// ReplyInsights are the per-entry observations attached to a reply.
type ReplyInsights struct {
	Emotions    []string `json:"emotions"`
	Patterns    []string `json:"patterns"`
	Suggestions []string `json:"suggestions"`
}

// PatternFinding is one recurring theme detected across entries.
type PatternFinding struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Confidence  int    `json:"confidence"`
}

// EntryAnalysis is the longitudinal view over a window of entries.
type EntryAnalysis struct {
	Patterns        []PatternFinding `json:"patterns"`
	Strengths       []string         `json:"strengths"`
	GrowthAreas     []string         `json:"growthAreas"`
	Recommendations []string         `json:"recommendations"`
}

// Technique is a named practice suggested in an advice response.
type Technique struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Duration    string   `json:"duration"`
}

// Advice is the structured answer to an advice request.
type Advice struct {
	Advice           string      `json:"advice"`
	Techniques       []Technique `json:"techniques"`
	PersonalizedPlan string      `json:"personalizedPlan"`
}

// MoodSample is one mood observation fed into trend analysis.
type MoodSample struct {
	Mood string
	Date string
	Note string
}

// MoodReport summarizes mood history.
type MoodReport struct {
	Trend           string   `json:"trend"`
	PredominantMood string   `json:"predominantMood"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// Therapist wraps a TextGenerator with the journaling prompts and the
// normalization rules that keep model output inside the documented shape.
type Therapist struct {
	gen TextGenerator
}

// NewTherapist builds a Therapist on top of any TextGenerator.
func NewTherapist(gen TextGenerator) *Therapist {
	return &Therapist{gen: gen}
}

// ReplyToEntry generates a supportive reply to a journal entry.
// history holds earlier entry texts, oldest first; callers pass at most
// the last few entries. Output is always normalized: a non-empty response,
// non-nil arrays and an empathy score clamped to [1, 10].
func (t *Therapist) ReplyToEntry(ctx context.Context, entry string, history []string) (EntryReply, error) {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Earlier journal entries for context:\n")
		sb.WriteString(strings.Join(history, entrySeparator))
		sb.WriteString("\n\nToday's entry:\n")
	}
	sb.WriteString(entry)

	raw, err := t.gen.GenerateText(ctx, therapistSystemPrompt, sb.String())
	if err != nil {
		return EntryReply{}, fmt.Errorf("generate reply: %w", err)
	}

	var reply EntryReply
	if err := decodeModelJSON(raw, &reply); err != nil {
		return EntryReply{}, fmt.Errorf("decode reply: %w", err)
	}
	return normalizeReply(reply), nil
}

// AnalyzeEntries detects longitudinal patterns across a window of entries,
// oldest first. Pattern confidences are clamped to [1, 100].
func (t *Therapist) AnalyzeEntries(ctx context.Context, entries []string) (EntryAnalysis, error) {
	prompt := "Journal entries, oldest first:\n" + strings.Join(entries, entrySeparator)

	raw, err := t.gen.GenerateText(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return EntryAnalysis{}, fmt.Errorf("generate analysis: %w", err)
	}

	var analysis EntryAnalysis
	if err := decodeModelJSON(raw, &analysis); err != nil {
		return EntryAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return normalizeAnalysis(analysis), nil
}

// Advise answers a free-form guidance request, grounded in recent entries
// when any are provided.
func (t *Therapist) Advise(ctx context.Context, topic, request string, history []string) (Advice, error) {
	var sb strings.Builder
	if topic != "" {
		sb.WriteString("Topic: " + topic + "\n\n")
	}
	sb.WriteString("Request: " + request)
	if len(history) > 0 {
		sb.WriteString("\n\nRecent journal entries for context:\n")
		sb.WriteString(strings.Join(history, entrySeparator))
	}

	raw, err := t.gen.GenerateText(ctx, adviceSystemPrompt, sb.String())
	if err != nil {
		return Advice{}, fmt.Errorf("generate advice: %w", err)
	}

	var advice Advice
	if err := decodeModelJSON(raw, &advice); err != nil {
		return Advice{}, fmt.Errorf("decode advice: %w", err)
	}
	return normalizeAdvice(advice), nil
}

// AnalyzeMood summarizes the trend across mood samples, oldest first.
func (t *Therapist) AnalyzeMood(ctx context.Context, samples []MoodSample) (MoodReport, error) {
	var sb strings.Builder
	sb.WriteString("Mood history, oldest first:\n")
	for _, s := range samples {
		sb.WriteString(fmt.Sprintf("- %s: %s", s.Date, s.Mood))
		if s.Note != "" {
			sb.WriteString(" (" + s.Note + ")")
		}
		sb.WriteString("\n")
	}

	raw, err := t.gen.GenerateText(ctx, moodSystemPrompt, sb.String())
	if err != nil {
		return MoodReport{}, fmt.Errorf("generate mood report: %w", err)
	}

	var report MoodReport
	if err := decodeModelJSON(raw, &report); err != nil {
		return MoodReport{}, fmt.Errorf("decode mood report: %w", err)
	}
	return normalizeMoodReport(report), nil
}

// decodeModelJSON parses a JSON object out of model output, tolerating
// markdown code fences and prose around the object.
func decodeModelJSON(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return fmt.Errorf("no JSON object in model output")
		}
		text = text[start : end+1]
	}
	return json.Unmarshal([]byte(text), out)
}

func normalizeReply(r EntryReply) EntryReply {
	if strings.TrimSpace(r.Response) == "" {
		r.Response = fallbackReply
	}
	r.FollowUpQuestions = cleanStrings(r.FollowUpQuestions)
	if len(r.FollowUpQuestions) > maxFollowUps {
		r.FollowUpQuestions = r.FollowUpQuestions[:maxFollowUps]
	}
	r.Insights.Emotions = cleanStrings(r.Insights.Emotions)
	r.Insights.Patterns = cleanStrings(r.Insights.Patterns)
	r.Insights.Suggestions = cleanStrings(r.Insights.Suggestions)
	if r.EmpathyScore == 0 {
		r.EmpathyScore = defaultEmpathyScore
	}
	r.EmpathyScore = clampInt(r.EmpathyScore, 1, 10)
	return r
}

func normalizeAnalysis(a EntryAnalysis) EntryAnalysis {
	if a.Patterns == nil {
		a.Patterns = []PatternFinding{}
	}
	for i := range a.Patterns {
		a.Patterns[i].Confidence = clampInt(a.Patterns[i].Confidence, 1, 100)
	}
	a.Strengths = cleanStrings(a.Strengths)
	a.GrowthAreas = cleanStrings(a.GrowthAreas)
	a.Recommendations = cleanStrings(a.Recommendations)
	return a
}

func normalizeAdvice(a Advice) Advice {
	if strings.TrimSpace(a.Advice) == "" {
		a.Advice = fallbackReply
	}
	if a.Techniques == nil {
		a.Techniques = []Technique{}
	}
	for i := range a.Techniques {
		a.Techniques[i].Steps = cleanStrings(a.Techniques[i].Steps)
	}
	return a
}

func normalizeMoodReport(r MoodReport) MoodReport {
	if r.Trend == "" {
		r.Trend = "stable"
	}
	if r.PredominantMood == "" {
		r.PredominantMood = "neutral"
	}
	r.Insights = cleanStrings(r.Insights)
	r.Recommendations = cleanStrings(r.Recommendations)
	return r
}

// cleanStrings drops blank elements and guarantees a non-nil slice, so
// JSON encoding produces [] instead of null.
func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
