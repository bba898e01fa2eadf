package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/models"
	"github.com/mektebli/school-crm/internal/repository"
)

var (
	ErrThreadNotFound     = errors.New("thread not found")
	ErrNotThreadMember    = errors.New("user is not a member of the thread")
	ErrNotThreadCreator   = errors.New("only the thread creator can perform this action")
	ErrThreadTitleMissing = errors.New("thread title is required")
	ErrMessageBodyMissing = errors.New("message body is required")
)

// ChatService handles the internal messaging feature.
type ChatService struct {
	chatRepo  repository.ChatRepository
	evaluator *authz.Evaluator
}

// NewChatService creates a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, evaluator *authz.Evaluator) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		evaluator: evaluator,
	}
}

// CreateThread creates a thread containing the creator and the given
// members.
func (s *ChatService) CreateThread(title string, creatorID uint64, memberIDs []uint64) (*models.Thread, error) {
	if title == "" {
		return nil, ErrThreadTitleMissing
	}

	thread := &models.Thread{
		Title:     title,
		CreatorID: creatorID,
	}

	ids := uniqueUint64(append([]uint64{creatorID}, memberIDs...))
	if err := s.chatRepo.CreateThread(thread, ids); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	return thread, nil
}

// ListThreads lists the threads the user belongs to.
func (s *ChatService) ListThreads(userID uint64) ([]models.Thread, error) {
	threads, err := s.chatRepo.ListThreadsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// PostMessage appends a message to a thread the author belongs to.
func (s *ChatService) PostMessage(threadID, authorID uint64, body string) (*models.Message, error) {
	if body == "" {
		return nil, ErrMessageBodyMissing
	}

	if err := s.requireMember(threadID, authorID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ThreadID: threadID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.chatRepo.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}

	return msg, nil
}

// ListMessages lists messages of a thread the user belongs to.
func (s *ChatService) ListMessages(threadID, userID uint64, offset, limit int) ([]models.Message, int64, error) {
	if err := s.requireMember(threadID, userID); err != nil {
		return nil, 0, err
	}

	return s.chatRepo.ListMessages(threadID, offset, limit)
}

// DeleteThread deletes a thread. The creator may always delete; others need
// the chat.moderate permission.
func (s *ChatService) DeleteThread(threadID, actorID uint64) error {
	thread, err := s.chatRepo.FindThread(threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrThreadNotFound
		}
		return fmt.Errorf("failed to find thread: %w", err)
	}

	if thread.CreatorID != actorID {
		allowed, aerr := s.evaluator.Can(actorID, authz.ActionChatModerate)
		if aerr != nil {
			return aerr
		}
		if !allowed {
			return ErrNotThreadCreator
		}
	}

	if err := s.chatRepo.DeleteThread(threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	return nil
}

func (s *ChatService) requireMember(threadID, userID uint64) error {
	if _, err := s.chatRepo.FindThread(threadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrThreadNotFound
		}
		return fmt.Errorf("failed to find thread: %w", err)
	}

	member, err := s.chatRepo.IsMember(threadID, userID)
	if err != nil {
		return fmt.Errorf("failed to check thread membership: %w", err)
	}
	if !member {
		return ErrNotThreadMember
	}
	return nil
}
