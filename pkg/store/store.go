package store

import "mirajournal/pkg/domain"

// Store defines persistence operations for users, entries, replies,
// insights, and advice requests.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// journal entries
	CreateEntry(domain.Entry) error
	UpdateEntry(domain.Entry) error
	GetEntry(id string) (domain.Entry, bool, error)
	// ListEntriesByOwner returns entries newest first. limit <= 0 means all.
	ListEntriesByOwner(ownerID string, limit int) ([]domain.Entry, error)

	// AI replies (append-only)
	CreateReply(domain.Reply) error
	// ListRepliesForEntry returns replies newest first.
	ListRepliesForEntry(entryID string) ([]domain.Reply, error)
	CountRepliesForEntry(entryID string) (int, error)

	// insights
	CreateInsight(domain.Insight) error
	// ListInsightsByOwner returns insights newest first.
	ListInsightsByOwner(ownerID string) ([]domain.Insight, error)

	// advice
	CreateAdviceRequest(domain.AdviceRequest) error
	UpdateAdviceResponse(domain.AdviceRequest) error
	// ListAdviceByOwner returns advice requests newest first.
	ListAdviceByOwner(ownerID string) ([]domain.AdviceRequest, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
