package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mirajournal/pkg/ai"
	"mirajournal/pkg/queue"
	"mirajournal/pkg/store"
	"testing"
)

type fakeGenerator struct {
	output     string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

type fakeQueue struct {
	jobs []queue.ReplyJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, entryID, kind, answer string) (queue.ReplyJob, error) {
	if f.err != nil {
		return queue.ReplyJob{}, f.err
	}
	job := queue.ReplyJob{
		ID:      fmt.Sprintf("job-%d", len(f.jobs)+1),
		EntryID: entryID,
		Kind:    kind,
		Answer:  answer,
		Status:  queue.StatusQueued,
	}
	f.jobs = append(f.jobs, job)
	return job, nil
}

func newTestApp(t *testing.T, gen ai.TextGenerator) (*App, *fakeQueue, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore(
		"0123456789abcdef0123456789abcdef", time.Hour, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	q := &fakeQueue{}
	a, err := New(Config{
		Store:     mem,
		Sessions:  sessions,
		Therapist: ai.NewTherapist(gen),
		Queue:     q,
		Logger:    slog.Default(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, q, mem
}

func signUpTestUser(t *testing.T, a *App) string {
	t.Helper()
	user, _, err := a.SignUp(context.Background(), "user@example.com", "long enough password", "Sam")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return user.ID
}

func TestSignUpAndLogin(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()

	user, token, err := a.SignUp(ctx, "  User@Example.COM ", "long enough password", "Sam")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	if _, _, err := a.SignUp(ctx, "user@example.com", "long enough password", "Sam"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, loginToken, err := a.Login(ctx, "user@example.com", "long enough password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID || loginToken == "" {
		t.Fatalf("unexpected login result: %+v", got)
	}

	if _, _, err := a.Login(ctx, "user@example.com", "wrong password!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := a.Login(ctx, "unknown@example.com", "long enough password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()

	if _, _, err := a.SignUp(ctx, "not-an-email", "long enough password", ""); !IsValidation(err) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
	if _, _, err := a.SignUp(ctx, "a@b.com", "short", ""); !IsValidation(err) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()

	_, token, err := a.SignUp(ctx, "user@example.com", "long enough password", "Sam")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, ok, err := a.Sessions().GetUserIDByToken(token); err != nil || !ok {
		t.Fatalf("token should validate before logout: ok=%v err=%v", ok, err)
	}
	if err := a.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := a.Sessions().GetUserIDByToken(token); ok {
		t.Fatal("token must not validate after logout")
	}
}

func TestCreateEntryValidatesAndEnqueues(t *testing.T) {
	a, q, _ := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "   "}); !IsValidation(err) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}
	bad := 6
	if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "x", MoodScore: &bad}); !IsValidation(err) {
		t.Fatalf("expected validation error for moodScore out of range, got %v", err)
	}

	entry, jobID, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "  today was fine  "})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if entry.Content != "today was fine" {
		t.Fatalf("content not trimmed: %q", entry.Content)
	}
	if jobID == "" || len(q.jobs) != 1 {
		t.Fatalf("expected one enqueued job, got jobID=%q jobs=%d", jobID, len(q.jobs))
	}
	if q.jobs[0].EntryID != entry.ID || q.jobs[0].Kind != "initial" {
		t.Fatalf("unexpected job: %+v", q.jobs[0])
	}
}

func TestCreateEntrySucceedsWhenEnqueueFails(t *testing.T) {
	a, q, mem := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)
	q.err = errors.New("redis down")

	entry, jobID, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "still works"})
	if err != nil {
		t.Fatalf("create entry must not fail on enqueue error: %v", err)
	}
	if jobID != "" {
		t.Fatalf("expected empty job id, got %q", jobID)
	}
	if _, found, _ := mem.GetEntry(entry.ID); !found {
		t.Fatal("entry must be persisted despite enqueue failure")
	}
}

func TestProcessReplyJobPersistsExactlyOneReply(t *testing.T) {
	gen := &fakeGenerator{output: `{
		"response": "It sounds like the exam is weighing on you.",
		"followUpQuestions": ["Q1"],
		"insights": {"emotions": ["anxiety"], "patterns": [], "suggestions": ["breathe"]}
	}`}
	a, q, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	entry, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "I felt anxious today about my exam"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := a.ProcessReplyJob(ctx, q.jobs[0]); err != nil {
		t.Fatalf("process job: %v", err)
	}

	listed, err := a.ListEntries(ctx, ownerID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != entry.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	if listed[0].Mood != "" {
		t.Fatalf("mood should be empty, got %q", listed[0].Mood)
	}
	if len(listed[0].Replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(listed[0].Replies))
	}
	reply := listed[0].Replies[0]
	if reply.Response != "It sounds like the exam is weighing on you." {
		t.Fatalf("unexpected response: %q", reply.Response)
	}
	if len(reply.FollowUpQuestions) != 1 || reply.FollowUpQuestions[0] != "Q1" {
		t.Fatalf("unexpected follow-ups: %+v", reply.FollowUpQuestions)
	}
	if len(reply.Insights.Emotions) != 1 || reply.Insights.Emotions[0] != "anxiety" {
		t.Fatalf("unexpected emotions: %+v", reply.Insights.Emotions)
	}
	if reply.EmpathyScore != 5 {
		t.Fatalf("absent empathy score must default to 5, got %d", reply.EmpathyScore)
	}
	if reply.Kind != "initial" {
		t.Fatalf("kind = %q, want initial", reply.Kind)
	}
}

func TestProcessReplyJobFailurePersistsNothing(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	a, q, mem := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	entry, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "some entry"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := a.ProcessReplyJob(ctx, q.jobs[0]); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	count, _ := mem.CountRepliesForEntry(entry.ID)
	if count != 0 {
		t.Fatalf("expected no replies persisted, got %d", count)
	}
}

func TestProcessReplyJobIncludesHistoryAndAnswer(t *testing.T) {
	gen := &fakeGenerator{output: `{"response": "ok"}`}
	a, q, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	for i := 0; i < 2; i++ {
		if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: fmt.Sprintf("earlier entry %d", i)}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}
	entry, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "latest entry"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	jobID, err := a.AnswerFollowUp(ctx, ownerID, entry.ID, "I slept on it")
	if err != nil {
		t.Fatalf("answer follow-up: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a follow-up job id")
	}
	job := q.jobs[len(q.jobs)-1]
	if job.Kind != "follow_up" || job.Answer != "I slept on it" {
		t.Fatalf("unexpected follow-up job: %+v", job)
	}

	if err := a.ProcessReplyJob(ctx, job); err != nil {
		t.Fatalf("process job: %v", err)
	}
	if !contains(gen.lastUser, "earlier entry 0") || !contains(gen.lastUser, "earlier entry 1") {
		t.Fatalf("prompt missing history: %q", gen.lastUser)
	}
	if !contains(gen.lastUser, "I slept on it") {
		t.Fatalf("prompt missing follow-up answer: %q", gen.lastUser)
	}
}

func TestUpdateEntryImmutableOnceReplied(t *testing.T) {
	gen := &fakeGenerator{output: `{"response": "ok"}`}
	a, q, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	entry, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "original"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	newContent := "edited"
	updated, err := a.UpdateEntry(ctx, ownerID, entry.ID, EntryUpdate{Content: &newContent})
	if err != nil {
		t.Fatalf("update before reply: %v", err)
	}
	if updated.Content != "edited" {
		t.Fatalf("content = %q, want edited", updated.Content)
	}

	if err := a.ProcessReplyJob(ctx, q.jobs[0]); err != nil {
		t.Fatalf("process job: %v", err)
	}
	if _, err := a.UpdateEntry(ctx, ownerID, entry.ID, EntryUpdate{Content: &newContent}); !errors.Is(err, ErrEntryImmutable) {
		t.Fatalf("expected ErrEntryImmutable, got %v", err)
	}
}

func TestEntryOwnershipEnforced(t *testing.T) {
	a, _, _ := newTestApp(t, &fakeGenerator{})
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)
	other, _, err := a.SignUp(ctx, "other@example.com", "long enough password", "Other")
	if err != nil {
		t.Fatalf("signup other: %v", err)
	}

	entry, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "mine"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if _, err := a.GetEntry(ctx, other.ID, entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign entry, got %v", err)
	}
	if _, err := a.UpdateEntry(ctx, other.ID, entry.ID, EntryUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign update, got %v", err)
	}
	if _, err := a.AnswerFollowUp(ctx, other.ID, entry.ID, "answer"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign follow-up, got %v", err)
	}
}

func TestGenerateInsightsShortfall(t *testing.T) {
	gen := &fakeGenerator{output: `{}`}
	a, _, mem := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	for n := 0; n < minEntriesForInsights; n++ {
		report, err := a.GenerateInsights(ctx, ownerID)
		if err != nil {
			t.Fatalf("generate with %d entries: %v", n, err)
		}
		if report.Message != insightShortfallMessage {
			t.Fatalf("with %d entries message = %q", n, report.Message)
		}
		if len(report.Insights) != 0 {
			t.Fatalf("with %d entries expected no insights", n)
		}
		stored, _ := mem.ListInsightsByOwner(ownerID)
		if len(stored) != 0 {
			t.Fatalf("with %d entries expected zero insight rows, got %d", n, len(stored))
		}
		if gen.calls != 0 {
			t.Fatalf("shortfall must not call the AI, calls=%d", gen.calls)
		}
		if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: fmt.Sprintf("entry %d", n)}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}
}

func TestGenerateInsightsPersistsCategorizedFindings(t *testing.T) {
	gen := &fakeGenerator{output: `{
		"patterns": [{"type": "Work stress", "description": "deadlines pile up", "confidence": 75}],
		"strengths": ["self-awareness"],
		"growthAreas": ["sleep hygiene"],
		"recommendations": ["keep a wind-down routine"]
	}`}
	a, _, mem := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)
	for i := 0; i < 3; i++ {
		if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: fmt.Sprintf("entry %d", i)}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}

	report, err := a.GenerateInsights(ctx, ownerID)
	if err != nil {
		t.Fatalf("generate insights: %v", err)
	}
	if report.Message != "" {
		t.Fatalf("unexpected message: %q", report.Message)
	}
	if len(report.Insights) != 3 {
		t.Fatalf("expected 3 insights, got %d", len(report.Insights))
	}
	byCategory := map[string]int{}
	for _, ins := range report.Insights {
		byCategory[string(ins.Category)] = ins.Confidence
	}
	if byCategory["pattern"] != 75 {
		t.Fatalf("pattern confidence = %d, want 75", byCategory["pattern"])
	}
	if byCategory["strength"] != strengthConfidence {
		t.Fatalf("strength confidence = %d, want %d", byCategory["strength"], strengthConfidence)
	}
	if byCategory["growth_area"] != growthAreaConfidence {
		t.Fatalf("growth area confidence = %d, want %d", byCategory["growth_area"], growthAreaConfidence)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected recommendations returned, got %+v", report.Recommendations)
	}

	stored, _ := mem.ListInsightsByOwner(ownerID)
	if len(stored) != 3 {
		t.Fatalf("expected 3 persisted insights, got %d", len(stored))
	}
}

func TestGenerateInsightsFailurePersistsNothing(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	a, _, mem := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)
	for i := 0; i < 3; i++ {
		if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: fmt.Sprintf("entry %d", i)}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}

	if _, err := a.GenerateInsights(ctx, ownerID); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	stored, _ := mem.ListInsightsByOwner(ownerID)
	if len(stored) != 0 {
		t.Fatalf("expected no insights persisted, got %d", len(stored))
	}
}

func TestRequestAdvicePersistsAndUpdates(t *testing.T) {
	gen := &fakeGenerator{output: `{
		"advice": "Start small.",
		"techniques": [{"name": "Box breathing", "description": "4x4 breath", "steps": ["inhale", "hold", "exhale", "hold"], "duration": "5 minutes"}],
		"personalizedPlan": "Practice before bed."
	}`}
	a, _, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	if _, err := a.RequestAdvice(ctx, ownerID, "sleep", "  "); !IsValidation(err) {
		t.Fatalf("expected validation error for blank request, got %v", err)
	}

	row, err := a.RequestAdvice(ctx, ownerID, "sleep", "how do I sleep better")
	if err != nil {
		t.Fatalf("request advice: %v", err)
	}
	if row.Response != "Start small." || row.Plan != "Practice before bed." {
		t.Fatalf("unexpected advice row: %+v", row)
	}
	if len(row.Techniques) != 1 || row.Techniques[0].Name != "Box breathing" {
		t.Fatalf("unexpected techniques: %+v", row.Techniques)
	}

	list, err := a.ListAdvice(ctx, ownerID)
	if err != nil {
		t.Fatalf("list advice: %v", err)
	}
	if len(list) != 1 || list[0].Response != "Start small." {
		t.Fatalf("advice not persisted: %+v", list)
	}
}

func TestRequestAdviceFailureKeepsRowWithoutResponse(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	a, _, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	if _, err := a.RequestAdvice(ctx, ownerID, "sleep", "help"); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	list, err := a.ListAdvice(ctx, ownerID)
	if err != nil {
		t.Fatalf("list advice: %v", err)
	}
	if len(list) != 1 || list[0].Response != "" {
		t.Fatalf("expected row with empty response, got %+v", list)
	}
}

func TestMoodAnalytics(t *testing.T) {
	gen := &fakeGenerator{output: `{
		"trend": "improving",
		"predominantMood": "calm",
		"insights": ["mornings are better"],
		"recommendations": ["keep walking"]
	}`}
	a, _, _ := newTestApp(t, gen)
	ctx := context.Background()
	ownerID := signUpTestUser(t, a)

	report, err := a.MoodAnalytics(ctx, ownerID)
	if err != nil {
		t.Fatalf("mood analytics: %v", err)
	}
	if report.Message != noMoodDataMessage {
		t.Fatalf("message = %q, want %q", report.Message, noMoodDataMessage)
	}
	if gen.calls != 0 {
		t.Fatalf("no-mood path must not call the AI, calls=%d", gen.calls)
	}

	if _, _, err := a.CreateEntry(ctx, ownerID, EntryInput{Content: "walked in the park", Mood: "calm"}); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	report, err = a.MoodAnalytics(ctx, ownerID)
	if err != nil {
		t.Fatalf("mood analytics: %v", err)
	}
	if report.Trend != "improving" || report.PredominantMood != "calm" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !contains(gen.lastUser, "calm") {
		t.Fatalf("prompt missing mood sample: %q", gen.lastUser)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
