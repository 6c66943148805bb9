package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// ReplyKind distinguishes the event that produced an AI reply.
type ReplyKind string

const (
	ReplyInitial  ReplyKind = "initial"
	ReplyFollowUp ReplyKind = "follow_up"
)

// ParseReplyKind maps a raw string onto the closed ReplyKind set.
func ParseReplyKind(raw string) (ReplyKind, bool) {
	switch ReplyKind(raw) {
	case ReplyInitial:
		return ReplyInitial, true
	case ReplyFollowUp:
		return ReplyFollowUp, true
	default:
		return "", false
	}
}

// InsightCategory classifies a durable observation about a user's history.
type InsightCategory string

const (
	InsightPattern    InsightCategory = "pattern"
	InsightStrength   InsightCategory = "strength"
	InsightGrowthArea InsightCategory = "growth_area"
)

// ParseInsightCategory maps a raw string onto the closed category set.
func ParseInsightCategory(raw string) (InsightCategory, bool) {
	switch InsightCategory(raw) {
	case InsightPattern:
		return InsightPattern, true
	case InsightStrength:
		return InsightStrength, true
	case InsightGrowthArea:
		return InsightGrowthArea, true
	default:
		return "", false
	}
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Entry is a single journal submission.
type Entry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	MoodScore *int      `json:"moodScore,omitempty"`
	Private   bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReplyInsights carries the structured observations inside a single reply.
type ReplyInsights struct {
	Emotions    []string `json:"emotions"`
	Patterns    []string `json:"patterns"`
	Suggestions []string `json:"suggestions"`
}

// Reply is an AI-generated therapeutic response to an Entry. Replies are
// append-only; an entry accumulates one per triggering event.
type Reply struct {
	ID                string        `json:"id"`
	EntryID           string        `json:"entryId"`
	Response          string        `json:"response"`
	FollowUpQuestions []string      `json:"followUpQuestions"`
	Insights          ReplyInsights `json:"insights"`
	EmpathyScore      int           `json:"empathyScore"`
	Kind              ReplyKind     `json:"kind"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Insight is a durable categorized observation derived from a user's
// accumulated entries. Confidence is a 1-100 score.
type Insight struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Category    InsightCategory `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Confidence  int             `json:"confidence"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Technique is a coping technique attached to an advice response.
type Technique struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Duration    string   `json:"duration"`
}

// AdviceRequest records a user's advice ask and, once generated, the answer.
type AdviceRequest struct {
	ID         string      `json:"id"`
	OwnerID    string      `json:"ownerId"`
	Topic      string      `json:"topic"`
	Request    string      `json:"request"`
	Response   string      `json:"response,omitempty"`
	Techniques []Technique `json:"techniques,omitempty"`
	Plan       string      `json:"personalizedPlan,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// EntryWithReplies is the listing shape returned by the journal API: the
// entry plus its AI replies, newest reply first.
type EntryWithReplies struct {
	Entry
	Replies []Reply `json:"aiReplies"`
}
