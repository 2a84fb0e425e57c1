package service

import (
	"context"
	"fmt"
	"strings"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/dbmysql"
	"gosocialmsg/internal/message/repository"
	"gosocialmsg/internal/pager"

	"github.com/rs/zerolog/log"
)

// SendRequest is what a member submits to send a message
type SendRequest struct {
	Recipients []uint64
	Subject    string
	Body       string
	Type       string
	Identifier int64
	IsRead     bool
}

// MessageService defines the interface exposed to the handler layer.
// Every method takes the acting member explicitly.
type MessageService interface {
	Send(ctx context.Context, fromMemberID uint64, req SendRequest) (*dbmysql.Message, error)
	SaveDraft(ctx context.Context, fromMemberID uint64, subject, body string) (*dbmysql.Message, error)
	Reply(ctx context.Context, fromMemberID, messageID uint64, subject, body string) (*dbmysql.Message, error)

	SentMessages(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error)
	Drafts(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error)
	Previous(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error)
	Next(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error)
	ReplyOf(ctx context.Context, callerID, memberID, messageID uint64) (*dbmysql.Message, error)
	Lookup(ctx context.Context, callerID, fromMemberID, toMemberID uint64, typeName string, identifier int64) (*dbmysql.Message, error)

	Senders(ctx context.Context, memberID uint64) ([]*dbmysql.Member, error)
	Latest(ctx context.Context, myMemberID, memberID uint64) (*dbmysql.Message, error)
	Conversation(ctx context.Context, myMemberID, memberID uint64, maxID int64) ([]*dbmysql.Message, error)

	MarkAsRead(ctx context.Context, memberID, messageID uint64) error
	Delete(ctx context.Context, memberID, messageID uint64) error
}

type messageService struct {
	repo repository.MessageRepository
}

// Constructor used in DI/wire
func NewMessageService(r repository.MessageRepository) MessageService {
	return &messageService{repo: r}
}

func (s *messageService) Send(ctx context.Context, fromMemberID uint64, req SendRequest) (*dbmysql.Message, error) {
	if fromMemberID == 0 {
		return nil, common.ErrUnauthenticated
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("%w: message body cannot be empty", common.ErrInvalidInput)
	}

	message, err := s.repo.SendMessage(ctx, req.Recipients, req.Subject, req.Body, repository.SendOptions{
		Type:         req.Type,
		Identifier:   req.Identifier,
		IsRead:       req.IsRead,
		FromMemberID: fromMemberID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint64("message_id", message.ID).
		Uint64("from", fromMemberID).
		Int("recipients", len(req.Recipients)).
		Msg("Message sent")
	return message, nil
}

func (s *messageService) SaveDraft(ctx context.Context, fromMemberID uint64, subject, body string) (*dbmysql.Message, error) {
	if fromMemberID == 0 {
		return nil, common.ErrUnauthenticated
	}
	return s.repo.SaveDraft(ctx, fromMemberID, subject, body, nil)
}

// Reply sends a message back to the sender of messageID, linked through return_message_id.
// Only a recipient of the original message may reply to it; anyone else gets ErrNotFound.
func (s *messageService) Reply(ctx context.Context, fromMemberID, messageID uint64, subject, body string) (*dbmysql.Message, error) {
	if fromMemberID == 0 {
		return nil, common.ErrUnauthenticated
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body cannot be empty", common.ErrInvalidInput)
	}

	original, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if original == nil || !original.IsSend || original.IsDeleted {
		return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
	}
	if original.MemberID == fromMemberID {
		return nil, fmt.Errorf("%w: cannot reply to your own message", common.ErrInvalidInput)
	}

	received, err := s.repo.IsRecipient(ctx, original.ID, fromMemberID)
	if err != nil {
		return nil, err
	}
	if !received {
		return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
	}

	reply, err := s.repo.SendMessage(ctx, []uint64{original.MemberID}, subject, body, repository.SendOptions{
		FromMemberID:    fromMemberID,
		ReturnMessageID: &original.ID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint64("message_id", reply.ID).
		Uint64("reply_to", original.ID).
		Msg("Reply sent")
	return reply, nil
}

func (s *messageService) SentMessages(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	return s.repo.SendMessagePager(ctx, memberID, page, size)
}

func (s *messageService) Drafts(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	return s.repo.DraftMessagePager(ctx, memberID, page, size)
}

func (s *messageService) Previous(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error) {
	reference, err := s.ownSentMessage(ctx, memberID, messageID)
	if err != nil {
		return nil, err
	}
	return s.repo.PreviousSendMessage(ctx, reference, memberID)
}

func (s *messageService) Next(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error) {
	reference, err := s.ownSentMessage(ctx, memberID, messageID)
	if err != nil {
		return nil, err
	}
	return s.repo.NextSendMessage(ctx, reference, memberID)
}

// ownSentMessage loads the navigation reference; another member's message is reported as missing.
func (s *messageService) ownSentMessage(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error) {
	message, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil || message.MemberID != memberID {
		return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
	}
	return message, nil
}

// ReplyOf returns memberID's reply to messageID. The caller must be the replier
// or the sender of messageID.
func (s *messageService) ReplyOf(ctx context.Context, callerID, memberID, messageID uint64) (*dbmysql.Message, error) {
	if callerID != memberID {
		original, err := s.repo.GetMessageByID(ctx, messageID)
		if err != nil {
			return nil, err
		}
		if original == nil {
			return nil, fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
		}
		if original.MemberID != callerID {
			return nil, fmt.Errorf("%w: not a party to message %d", common.ErrForbidden, messageID)
		}
	}
	return s.repo.HensinMessage(ctx, memberID, messageID)
}

// Lookup finds a typed message between fromMemberID and toMemberID; the caller must be one of them.
func (s *messageService) Lookup(ctx context.Context, callerID, fromMemberID, toMemberID uint64, typeName string, identifier int64) (*dbmysql.Message, error) {
	if callerID != fromMemberID && callerID != toMemberID {
		return nil, fmt.Errorf("%w: not a party to the lookup", common.ErrForbidden)
	}
	if typeName == "" {
		typeName = dbmysql.DefaultMessageType
	}
	return s.repo.MessageByTypeAndIdentifier(ctx, fromMemberID, toMemberID, typeName, identifier)
}

func (s *messageService) Senders(ctx context.Context, memberID uint64) ([]*dbmysql.Member, error) {
	return s.repo.SenderList(ctx, memberID)
}

func (s *messageService) Latest(ctx context.Context, myMemberID, memberID uint64) (*dbmysql.Message, error) {
	if myMemberID == memberID {
		return nil, fmt.Errorf("%w: conversation needs two members", common.ErrInvalidInput)
	}
	return s.repo.LatestMemberMessage(ctx, myMemberID, memberID)
}

// Conversation returns one batch of history; a negative maxID starts from the newest message.
func (s *messageService) Conversation(ctx context.Context, myMemberID, memberID uint64, maxID int64) ([]*dbmysql.Message, error) {
	if myMemberID == memberID {
		return nil, fmt.Errorf("%w: conversation needs two members", common.ErrInvalidInput)
	}
	return s.repo.MemberMessages(ctx, myMemberID, memberID, maxID)
}

func (s *messageService) MarkAsRead(ctx context.Context, memberID, messageID uint64) error {
	return s.repo.MarkAsRead(ctx, messageID, memberID)
}

func (s *messageService) Delete(ctx context.Context, memberID, messageID uint64) error {
	if err := s.repo.SoftDelete(ctx, messageID, memberID); err != nil {
		return err
	}
	log.Info().Uint64("message_id", messageID).Uint64("member_id", memberID).Msg("Message deleted")
	return nil
}
