package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mirajournal/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &EntryModel{}, &ReplyModel{}, &InsightModel{}, &AdviceModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "password_hash", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateEntry persists a new journal entry.
func (s *GormStore) CreateEntry(e domain.Entry) error {
	model := entryToModel(e)
	return s.db.Create(&model).Error
}

// UpdateEntry replaces the mutable fields of an entry.
func (s *GormStore) UpdateEntry(e domain.Entry) error {
	model := entryToModel(e)
	return s.db.Model(&EntryModel{}).
		Where("id = ?", e.ID).
		Select("title", "content", "mood", "mood_score", "private", "updated_at").
		Updates(&model).Error
}

// GetEntry retrieves an entry by ID.
func (s *GormStore) GetEntry(id string) (domain.Entry, bool, error) {
	var model EntryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Entry{}, false, nil
		}
		return domain.Entry{}, false, err
	}
	return entryFromModel(model), true, nil
}

// ListEntriesByOwner returns entries newest first. limit <= 0 means all.
func (s *GormStore) ListEntriesByOwner(ownerID string, limit int) ([]domain.Entry, error) {
	var models []EntryModel
	tx := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Entry, 0, len(models))
	for _, m := range models {
		res = append(res, entryFromModel(m))
	}
	return res, nil
}

// CreateReply appends an AI reply to an entry.
func (s *GormStore) CreateReply(r domain.Reply) error {
	model, err := replyToModel(r)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return s.db.Create(&model).Error
}

// ListRepliesForEntry returns replies newest first.
func (s *GormStore) ListRepliesForEntry(entryID string) ([]domain.Reply, error) {
	var models []ReplyModel
	if err := s.db.Where("entry_id = ?", entryID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Reply, 0, len(models))
	for _, m := range models {
		reply, err := replyFromModel(m)
		if err != nil {
			return nil, fmt.Errorf("decode reply %s: %w", m.ID, err)
		}
		res = append(res, reply)
	}
	return res, nil
}

// CountRepliesForEntry returns the number of replies on an entry.
func (s *GormStore) CountRepliesForEntry(entryID string) (int, error) {
	var count int64
	if err := s.db.Model(&ReplyModel{}).Where("entry_id = ?", entryID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateInsight persists a generated insight.
func (s *GormStore) CreateInsight(i domain.Insight) error {
	model := insightToModel(i)
	return s.db.Create(&model).Error
}

// ListInsightsByOwner returns insights newest first.
func (s *GormStore) ListInsightsByOwner(ownerID string) ([]domain.Insight, error) {
	var models []InsightModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Insight, 0, len(models))
	for _, m := range models {
		res = append(res, insightFromModel(m))
	}
	return res, nil
}

// CreateAdviceRequest persists an advice request, with or without a response.
func (s *GormStore) CreateAdviceRequest(a domain.AdviceRequest) error {
	model, err := adviceToModel(a)
	if err != nil {
		return fmt.Errorf("encode advice: %w", err)
	}
	return s.db.Create(&model).Error
}

// UpdateAdviceResponse fills in the generated answer on an advice request.
func (s *GormStore) UpdateAdviceResponse(a domain.AdviceRequest) error {
	model, err := adviceToModel(a)
	if err != nil {
		return fmt.Errorf("encode advice: %w", err)
	}
	return s.db.Model(&AdviceModel{}).
		Where("id = ?", a.ID).
		Select("response", "techniques", "plan").
		Updates(&model).Error
}

// ListAdviceByOwner returns advice requests newest first.
func (s *GormStore) ListAdviceByOwner(ownerID string) ([]domain.AdviceRequest, error) {
	var models []AdviceModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.AdviceRequest, 0, len(models))
	for _, m := range models {
		advice, err := adviceFromModel(m)
		if err != nil {
			return nil, fmt.Errorf("decode advice %s: %w", m.ID, err)
		}
		res = append(res, advice)
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func entryToModel(e domain.Entry) EntryModel {
	return EntryModel{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Title:     e.Title,
		Content:   e.Content,
		Mood:      e.Mood,
		MoodScore: e.MoodScore,
		Private:   e.Private,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func entryFromModel(m EntryModel) domain.Entry {
	return domain.Entry{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		Content:   m.Content,
		Mood:      m.Mood,
		MoodScore: m.MoodScore,
		Private:   m.Private,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func replyToModel(r domain.Reply) (ReplyModel, error) {
	questions, err := json.Marshal(r.FollowUpQuestions)
	if err != nil {
		return ReplyModel{}, err
	}
	insights, err := json.Marshal(r.Insights)
	if err != nil {
		return ReplyModel{}, err
	}
	return ReplyModel{
		ID:                r.ID,
		EntryID:           r.EntryID,
		Response:          r.Response,
		FollowUpQuestions: questions,
		Insights:          insights,
		EmpathyScore:      r.EmpathyScore,
		Kind:              string(r.Kind),
		CreatedAt:         r.CreatedAt,
	}, nil
}

func replyFromModel(m ReplyModel) (domain.Reply, error) {
	reply := domain.Reply{
		ID:           m.ID,
		EntryID:      m.EntryID,
		Response:     m.Response,
		EmpathyScore: m.EmpathyScore,
		Kind:         domain.ReplyKind(m.Kind),
		CreatedAt:    m.CreatedAt,
	}
	if len(m.FollowUpQuestions) > 0 {
		if err := json.Unmarshal(m.FollowUpQuestions, &reply.FollowUpQuestions); err != nil {
			return domain.Reply{}, err
		}
	}
	if len(m.Insights) > 0 {
		if err := json.Unmarshal(m.Insights, &reply.Insights); err != nil {
			return domain.Reply{}, err
		}
	}
	return reply, nil
}

func insightToModel(i domain.Insight) InsightModel {
	return InsightModel{
		ID:          i.ID,
		OwnerID:     i.OwnerID,
		Category:    string(i.Category),
		Title:       i.Title,
		Description: i.Description,
		Confidence:  i.Confidence,
		CreatedAt:   i.CreatedAt,
	}
}

func insightFromModel(m InsightModel) domain.Insight {
	return domain.Insight{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Category:    domain.InsightCategory(m.Category),
		Title:       m.Title,
		Description: m.Description,
		Confidence:  m.Confidence,
		CreatedAt:   m.CreatedAt,
	}
}

func adviceToModel(a domain.AdviceRequest) (AdviceModel, error) {
	techniques, err := json.Marshal(a.Techniques)
	if err != nil {
		return AdviceModel{}, err
	}
	return AdviceModel{
		ID:         a.ID,
		OwnerID:    a.OwnerID,
		Topic:      a.Topic,
		Request:    a.Request,
		Response:   a.Response,
		Techniques: techniques,
		Plan:       a.Plan,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func adviceFromModel(m AdviceModel) (domain.AdviceRequest, error) {
	advice := domain.AdviceRequest{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Topic:     m.Topic,
		Request:   m.Request,
		Response:  m.Response,
		Plan:      m.Plan,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Techniques) > 0 {
		if err := json.Unmarshal(m.Techniques, &advice.Techniques); err != nil {
			return domain.AdviceRequest{}, err
		}
	}
	return advice, nil
}
