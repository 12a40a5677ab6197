package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"constitution-gpt/internal/model"
)

const maxMessageBodyRunes = 5000

var allowedAttachmentExt = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".txt": true, ".doc": true, ".docx": true,
}

type DirectMessageStore interface {
	Create(ctx context.Context, msg *model.DirectMessage) error
	GetByID(ctx context.Context, id uint) (*model.DirectMessage, error)
	ListConversation(ctx context.Context, a, b uint) ([]model.DirectMessage, error)
	ListInvolving(ctx context.Context, userID uint) ([]model.DirectMessage, error)
	MarkRead(ctx context.Context, receiverID, senderID uint) error
}

type UserDirectory interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.User, error)
}

type AttachmentStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type MessageService struct {
	messages      DirectMessageStore
	users         UserDirectory
	files         AttachmentStore
	maxAttachment int64
	logger        *zap.Logger
}

type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SendDirectInput struct {
	SenderID   uint
	ReceiverID uint
	Body       string
	Attachment *Attachment
}

// NewMessageService builds the messaging service. files may be nil, in which
// case attachments are rejected.
func NewMessageService(messages DirectMessageStore, users UserDirectory, files AttachmentStore, maxAttachment int64, logger *zap.Logger) *MessageService {
	if maxAttachment <= 0 {
		maxAttachment = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		messages:      messages,
		users:         users,
		files:         files,
		maxAttachment: maxAttachment,
		logger:        logger.Named("messages"),
	}
}

func (s *MessageService) Send(ctx context.Context, input SendDirectInput) (*model.DirectMessage, error) {
	if input.SenderID == 0 || input.ReceiverID == 0 {
		return nil, ErrInvalidInput
	}
	if input.SenderID == input.ReceiverID {
		return nil, invalidField("receiver_id", "must differ from sender")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" && input.Attachment == nil {
		return nil, invalidField("message", "must not be empty")
	}
	if runeLen(body) > maxMessageBodyRunes {
		return nil, invalidField("message", "is too long")
	}
	receiver, err := s.users.GetByID(ctx, input.ReceiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil || !receiver.IsActive {
		return nil, ErrNotFound
	}

	msg := &model.DirectMessage{
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Body:       body,
	}
	if input.Attachment != nil {
		if err := s.saveAttachment(ctx, msg, input.Attachment); err != nil {
			return nil, err
		}
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if msg.HasAttachment() {
			if delErr := s.files.Delete(ctx, msg.AttachmentKey); delErr != nil {
				s.logger.Warn("remove orphaned attachment failed", zap.String("key", msg.AttachmentKey), zap.Error(delErr))
			}
		}
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) saveAttachment(ctx context.Context, msg *model.DirectMessage, a *Attachment) error {
	if s.files == nil {
		return invalidField("file", "attachments are disabled")
	}
	name := filepath.Base(strings.TrimSpace(a.Name))
	ext := strings.ToLower(filepath.Ext(name))
	if name == "." || name == "/" || !allowedAttachmentExt[ext] {
		return invalidField("file", "unsupported file type")
	}
	if a.Size <= 0 {
		return invalidField("file", "is empty")
	}
	if a.Size > s.maxAttachment {
		return invalidField("file", "exceeds size limit")
	}
	key := uuid.NewString() + ext
	if err := s.files.Save(ctx, key, a.Body, a.Size, a.ContentType); err != nil {
		return err
	}
	msg.AttachmentKey = key
	msg.AttachmentName = name
	msg.AttachmentSize = a.Size
	msg.AttachmentType = a.ContentType
	return nil
}

// Conversation returns the messages between userID and otherID, oldest first,
// and marks the ones addressed to userID as read.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID uint) ([]model.DirectMessage, error) {
	if userID == 0 || otherID == 0 {
		return nil, ErrInvalidInput
	}
	msgs, err := s.messages.ListConversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	unread := false
	for _, m := range msgs {
		if m.ReceiverID == userID && !m.IsRead {
			unread = true
			break
		}
	}
	if unread {
		if err := s.messages.MarkRead(ctx, userID, otherID); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// Inbox lists one entry per conversation partner, most recent first.
func (s *MessageService) Inbox(ctx context.Context, userID uint) ([]model.InboxEntry, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	msgs, err := s.messages.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.InboxEntry, 0)
	index := make(map[uint]int)
	for _, m := range msgs {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		i, seen := index[other]
		if !seen {
			i = len(entries)
			index[other] = i
			entries = append(entries, model.InboxEntry{
				UserID:      other,
				LastMessage: inboxPreview(m),
				Timestamp:   m.CreatedAt,
			})
		}
		if m.ReceiverID == userID && !m.IsRead {
			entries[i].UnreadCount++
		}
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := entries[:0]
	for _, e := range entries {
		u, ok := byID[e.UserID]
		if !ok {
			continue
		}
		e.Username = u.Username
		e.Role = u.Role
		out = append(out, e)
	}
	return out, nil
}

// OpenAttachment returns the attachment of a message the caller sent or
// received. The caller closes the reader.
func (s *MessageService) OpenAttachment(ctx context.Context, userID, messageID uint) (*model.DirectMessage, io.ReadCloser, error) {
	if userID == 0 || messageID == 0 {
		return nil, nil, ErrInvalidInput
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg == nil || !msg.HasAttachment() {
		return nil, nil, ErrNotFound
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return nil, nil, ErrForbidden
	}
	if s.files == nil {
		return nil, nil, ErrNotFound
	}
	rc, err := s.files.Open(ctx, msg.AttachmentKey)
	if err != nil {
		return nil, nil, err
	}
	return msg, rc, nil
}

func inboxPreview(m model.DirectMessage) string {
	if m.Body != "" {
		return m.Body
	}
	return "[attachment] " + m.AttachmentName
}
