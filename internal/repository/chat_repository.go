package repository

import (
	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/models"
)

// GormChatRepository is a GORM implementation of ChatRepository
type GormChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &GormChatRepository{db: db}
}

// CreateThread creates a thread with its initial members atomically
func (r *GormChatRepository) CreateThread(thread *models.Thread, memberIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}

		members := make([]models.ThreadMember, len(memberIDs))
		for i, userID := range memberIDs {
			members[i] = models.ThreadMember{
				ThreadID: thread.ID,
				UserID:   userID,
			}
		}

		return tx.Create(&members).Error
	})
}

// FindThread finds a thread by ID with optional preloading
func (r *GormChatRepository) FindThread(id uint64, preload ...string) (*models.Thread, error) {
	var thread models.Thread
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&thread, id).Error; err != nil {
		return nil, err
	}

	return &thread, nil
}

// ListThreadsByUser lists threads the user belongs to
func (r *GormChatRepository) ListThreadsByUser(userID uint64) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.
		Joins("JOIN thread_members ON thread_members.thread_id = threads.id").
		Where("thread_members.user_id = ?", userID).
		Order("threads.updated_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// DeleteThread deletes a thread with its members and messages
func (r *GormChatRepository) DeleteThread(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		if err := tx.Where("thread_id = ?", id).Delete(&models.ThreadMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Thread{}, id).Error
	})
}

// IsMember reports whether a user belongs to a thread
func (r *GormChatRepository) IsMember(threadID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.ThreadMember{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&count).Error
	return count > 0, err
}

// CreateMessage appends a message to a thread
func (r *GormChatRepository) CreateMessage(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// ListMessages lists messages of a thread, oldest first
func (r *GormChatRepository) ListMessages(threadID uint64, offset, limit int) ([]models.Message, int64, error) {
	var messages []models.Message

	query := r.db.Model(&models.Message{}).Where("thread_id = ?", threadID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Author").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
