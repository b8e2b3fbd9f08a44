package ats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// Conversation is the latest state of a chat with one partner
type Conversation struct {
	Partner       *types.UserInfo      `json:"partner"`
	LatestMessage *storage.ChatMessage `json:"latest_message"`
	UnreadCount   int64                `json:"unread_count"`
}

// MessageService handles direct messages between users
type MessageService struct {
	db     *gorm.DB
	logger *utils.Logger
}

// NewMessageService creates the service
func NewMessageService(db *gorm.DB, logger *utils.Logger) *MessageService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &MessageService{db: db, logger: logger}
}

// CanChat decides whether sender may message recipient. When the chat is
// about an application only its applicant and the job's recruiter take part.
// Otherwise admins may talk to anyone, and job seekers and recruiters may
// talk to each other.
func CanChat(sender, recipient *storage.User, app *storage.Application) bool {
	if sender == nil || recipient == nil || sender.ID == recipient.ID {
		return false
	}
	if app != nil {
		if app.JobPosting == nil {
			return false
		}
		applicant, recruiter := app.ApplicantID, app.JobPosting.RecruiterID
		return (sender.ID == applicant && recipient.ID == recruiter) ||
			(sender.ID == recruiter && recipient.ID == applicant)
	}

	if sender.Role == types.RoleAdmin || recipient.Role == types.RoleAdmin {
		return true
	}
	return (sender.Role == types.RoleJobSeeker && recipient.Role == types.RoleRecruiter) ||
		(sender.Role == types.RoleRecruiter && recipient.Role == types.RoleJobSeeker)
}

// ValidateMessage checks the body and the file attachment
func ValidateMessage(req *types.SendMessageRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.RecipientID) == "" {
		fields["recipient_id"] = "recipient_id is required"
	}
	switch req.MessageType {
	case "", types.MessageTypeText:
		if strings.TrimSpace(req.Message) == "" {
			fields["message"] = "message is required"
		}
	case types.MessageTypeFile:
		if req.FileURL == "" || req.FileName == "" {
			fields["file"] = "File messages require file_url and file_name"
		}
	default:
		fields["message_type"] = "message_type must be text or file"
	}
	return validation(fields)
}

func (s *MessageService) user(ctx context.Context, id string) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *MessageService) application(ctx context.Context, id string) (*storage.Application, error) {
	var app storage.Application
	if err := s.db.WithContext(ctx).Preload("JobPosting").Where("id = ?", id).First(&app).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// Send delivers a text or file message from the actor
func (s *MessageService) Send(ctx context.Context, actor auth.Identity, req *types.SendMessageRequest) (*storage.ChatMessage, error) {
	if err := ValidateMessage(req); err != nil {
		return nil, err
	}

	sender, err := s.user(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.user(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	var app *storage.Application
	if req.ApplicationID != "" {
		if app, err = s.application(ctx, req.ApplicationID); err != nil {
			return nil, err
		}
	}
	if !CanChat(sender, recipient, app) {
		return nil, ErrChatNotAllowed
	}

	msg := &storage.ChatMessage{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Message:     req.Message,
		MessageType: types.MessageTypeText,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
	}
	if req.MessageType == types.MessageTypeFile {
		msg.MessageType = types.MessageTypeFile
		if strings.TrimSpace(msg.Message) == "" {
			msg.Message = req.FileName
		}
	}
	if app != nil {
		msg.ApplicationID = &app.ID
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// SystemMessage posts a platform notice to a user, optionally tied to an application
func (s *MessageService) SystemMessage(ctx context.Context, recipientID, applicationID, text string) (*storage.ChatMessage, error) {
	msg := &storage.ChatMessage{
		SenderID:    types.SystemSenderID,
		RecipientID: recipientID,
		Message:     text,
		MessageType: types.MessageTypeSystem,
	}
	if applicationID != "" {
		msg.ApplicationID = &applicationID
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to send system message: %w", err)
	}
	return msg, nil
}

// Conversation returns the messages between the actor and partner, oldest
// first. A non-empty applicationID narrows it to that application's chat.
func (s *MessageService) Conversation(ctx context.Context, actor auth.Identity, partnerID, applicationID string, offset, limit int) ([]storage.ChatMessage, error) {
	offset, limit = page(offset, limit)

	query := s.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			actor.UserID, partnerID, partnerID, actor.UserID)
	if applicationID != "" {
		query = query.Where("application_id = ?", applicationID)
	}

	var msgs []storage.ChatMessage
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	// newest page was fetched; present it chronologically
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Conversations lists every chat partner of the actor with the latest
// message and the number of unread messages, most recent first.
func (s *MessageService) Conversations(ctx context.Context, actor auth.Identity) ([]Conversation, error) {
	var msgs []storage.ChatMessage
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", actor.UserID, actor.UserID).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	convs := GroupConversations(actor.UserID, msgs)
	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.Partner.ID)
	}
	var users []storage.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation partners: %w", err)
	}
	byID := make(map[string]*storage.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range convs {
		if u, ok := byID[convs[i].Partner.ID]; ok {
			convs[i].Partner = u.Info()
		}
	}
	return convs, nil
}

// GroupConversations folds msgs into one entry per partner. Partners only
// carry their id; callers fill in the rest.
func GroupConversations(userID string, msgs []storage.ChatMessage) []Conversation {
	index := map[string]int{}
	var convs []Conversation

	for i := range msgs {
		m := &msgs[i]
		partner := m.SenderID
		if partner == userID {
			partner = m.RecipientID
		}

		pos, ok := index[partner]
		if !ok {
			pos = len(convs)
			index[partner] = pos
			convs = append(convs, Conversation{Partner: &types.UserInfo{ID: partner}, LatestMessage: m})
		}
		if m.CreatedAt.After(convs[pos].LatestMessage.CreatedAt) {
			convs[pos].LatestMessage = m
		}
		if m.RecipientID == userID && !m.IsRead {
			convs[pos].UnreadCount++
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LatestMessage.CreatedAt.After(convs[j].LatestMessage.CreatedAt)
	})
	if convs == nil {
		convs = []Conversation{}
	}
	return convs
}

// MarkRead marks messages from partner to the actor as read and returns how many changed
func (s *MessageService) MarkRead(ctx context.Context, actor auth.Identity, partnerID string) (int64, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&storage.ChatMessage{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", partnerID, actor.UserID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount counts the actor's unread messages
func (s *MessageService) UnreadCount(ctx context.Context, actor auth.Identity) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&storage.ChatMessage{}).
		Where("recipient_id = ? AND is_read = ?", actor.UserID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

// Delete removes a message; only its sender may do so
func (s *MessageService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	var msg storage.ChatMessage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		if storage.IsNotFound(err) {
			return ErrMessageNotFound
		}
		return err
	}
	if msg.SenderID != actor.UserID {
		return ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&msg).Error; err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Search finds the actor's messages containing query
func (s *MessageService) Search(ctx context.Context, actor auth.Identity, query string, limit int) ([]storage.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation(map[string]string{"q": "search query is required"})
	}
	_, limit = page(0, limit)

	var msgs []storage.ChatMessage
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? OR recipient_id = ?) AND message ILIKE ?", actor.UserID, actor.UserID, "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return msgs, nil
}

// ApplicationMessages returns the messages tied to an application, oldest first
func (s *MessageService) ApplicationMessages(ctx context.Context, actor auth.Identity, applicationID string) ([]storage.ChatMessage, error) {
	app, err := s.application(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !canAccessApplication(actor, app) {
		return nil, ErrForbidden
	}

	var msgs []storage.ChatMessage
	err = s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load application messages: %w", err)
	}
	return msgs, nil
}
