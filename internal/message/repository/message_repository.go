package repository

import (
	"context"
	"errors"
	"fmt"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/config"
	"gosocialmsg/internal/dbmysql"
	"gosocialmsg/internal/member"
	"gosocialmsg/internal/pager"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MemberMessagesLimit is the size of one conversation history batch
const MemberMessagesLimit = 25

// SendOptions tunes SendMessage. Zero values mean the defaults.
type SendOptions struct {
	Type            string // message type name, "message" when empty
	Identifier      int64  // foreign id stored on the message
	IsRead          bool   // initial read flag of every delivery record
	FromMemberID    uint64
	ReturnMessageID *uint64
}

func (o SendOptions) withDefaults() SendOptions {
	if o.Type == "" {
		o.Type = dbmysql.DefaultMessageType
	}
	return o
}

type MessageRepository interface {
	SendMessage(ctx context.Context, recipients []uint64, subject, body string, opts SendOptions) (*dbmysql.Message, error)
	SaveDraft(ctx context.Context, fromMemberID uint64, subject, body string, returnMessageID *uint64) (*dbmysql.Message, error)
	GetMessageByID(ctx context.Context, messageID uint64) (*dbmysql.Message, error)

	SendMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error)
	DraftMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error)
	PreviousSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error)
	NextSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error)
	HensinMessage(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error)
	MessageByTypeAndIdentifier(ctx context.Context, fromMemberID, toMemberID uint64, typeName string, identifier int64) (*dbmysql.Message, error)

	SenderList(ctx context.Context, memberID uint64) ([]*dbmysql.Member, error)
	LatestMemberMessage(ctx context.Context, myMemberID, memberID uint64) (*dbmysql.Message, error)
	MemberMessages(ctx context.Context, myMemberID, memberID uint64, maxID int64) ([]*dbmysql.Message, error)

	IsRecipient(ctx context.Context, messageID, memberID uint64) (bool, error)
	MarkAsRead(ctx context.Context, messageID, recipientID uint64) error
	SoftDelete(ctx context.Context, messageID, ownerID uint64) error
}

type messageRepository struct {
	db      *gorm.DB
	types   MessageTypeRepository
	members member.MemberRepository
	pager   *pager.Pager

	includeDeleted bool // conversation queries only
}

func NewMessageRepository(
	db *gorm.DB,
	types MessageTypeRepository,
	members member.MemberRepository,
	cfg *config.Config,
) MessageRepository {
	return &messageRepository{
		db:             db,
		types:          types,
		members:        members,
		pager:          pager.New(cfg.Messaging.DefaultPageSize, cfg.Messaging.MaxPageSize),
		includeDeleted: cfg.Messaging.ConversationIncludeDeleted,
	}
}

// SendMessage stores one message and one delivery record per recipient in a single transaction.
func (r *messageRepository) SendMessage(
	ctx context.Context,
	recipients []uint64,
	subject, body string,
	opts SendOptions,
) (*dbmysql.Message, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", common.ErrInvalidInput)
	}
	if lo.Contains(recipients, 0) {
		return nil, fmt.Errorf("%w: recipient id must not be zero", common.ErrInvalidInput)
	}
	if opts.FromMemberID == 0 {
		return nil, fmt.Errorf("%w: sender is required", common.ErrInvalidInput)
	}
	opts = opts.withDefaults()

	typeID, err := r.types.IDByName(ctx, opts.Type)
	if err != nil {
		return nil, err
	}

	message := &dbmysql.Message{
		MemberID:        opts.FromMemberID,
		Subject:         subject,
		Body:            body,
		MessageTypeID:   typeID,
		ForeignID:       opts.Identifier,
		IsSend:          true,
		ReturnMessageID: opts.ReturnMessageID,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		for _, recipient := range lo.Uniq(recipients) {
			send := &dbmysql.MessageSendList{
				MessageID: message.ID,
				MemberID:  recipient,
				IsRead:    opts.IsRead,
			}
			if err := tx.Create(send).Error; err != nil {
				return fmt.Errorf("failed to create delivery record for member %d: %w", recipient, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

// SaveDraft stores an unsent message; drafts get no delivery records.
func (r *messageRepository) SaveDraft(
	ctx context.Context,
	fromMemberID uint64,
	subject, body string,
	returnMessageID *uint64,
) (*dbmysql.Message, error) {
	if fromMemberID == 0 {
		return nil, fmt.Errorf("%w: sender is required", common.ErrInvalidInput)
	}

	typeID, err := r.types.IDByName(ctx, dbmysql.DefaultMessageType)
	if err != nil {
		return nil, err
	}

	draft := &dbmysql.Message{
		MemberID:        fromMemberID,
		Subject:         subject,
		Body:            body,
		MessageTypeID:   typeID,
		IsSend:          false,
		ReturnMessageID: returnMessageID,
	}
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

func (r *messageRepository) GetMessageByID(ctx context.Context, messageID uint64) (*dbmysql.Message, error) {
	var message dbmysql.Message
	err := r.db.WithContext(ctx).Where("id = ?", messageID).Take(&message).Error
	return found(&message, err, "failed to get message")
}

func (r *messageRepository) SendMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	query := sentBy(memberID)(r.db.WithContext(ctx).Model(&dbmysql.Message{}))
	return pager.Paginate[dbmysql.Message](ctx, r.pager, query, "created_at DESC", page, size)
}

func (r *messageRepository) DraftMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	query := draftsBy(memberID)(r.db.WithContext(ctx).Model(&dbmysql.Message{}))
	return pager.Paginate[dbmysql.Message](ctx, r.pager, query, "created_at DESC", page, size)
}

// PreviousSendMessage is the closest lower id among memberID's sent messages.
func (r *messageRepository) PreviousSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error) {
	var previous dbmysql.Message
	err := sentBy(memberID)(r.db.WithContext(ctx)).
		Where("id < ?", message.ID).
		Order("id DESC").
		Take(&previous).Error
	return found(&previous, err, "failed to get previous message")
}

// NextSendMessage is the closest higher id among memberID's sent messages.
func (r *messageRepository) NextSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error) {
	var next dbmysql.Message
	err := sentBy(memberID)(r.db.WithContext(ctx)).
		Where("id > ?", message.ID).
		Order("id ASC").
		Take(&next).Error
	return found(&next, err, "failed to get next message")
}

// HensinMessage finds memberID's sent reply to messageID.
func (r *messageRepository) HensinMessage(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error) {
	var reply dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Where("is_send = ?", true).
		Where("return_message_id = ?", messageID).
		Take(&reply).Error
	return found(&reply, err, "failed to get reply message")
}

// MessageByTypeAndIdentifier returns the message behind the latest matching delivery
// record of toMemberID. An unknown type name reads as "not found".
func (r *messageRepository) MessageByTypeAndIdentifier(
	ctx context.Context,
	fromMemberID, toMemberID uint64,
	typeName string,
	identifier int64,
) (*dbmysql.Message, error) {
	typeID, err := r.types.IDByName(ctx, typeName)
	if err != nil {
		if errors.Is(err, common.ErrUnknownMessageType) {
			return nil, nil
		}
		return nil, err
	}

	matching := r.db.Model(&dbmysql.Message{}).
		Select("id").
		Where("message_type_id = ? AND member_id = ? AND foreign_id = ?", typeID, fromMemberID, identifier)

	var send dbmysql.MessageSendList
	err = r.db.WithContext(ctx).
		Where("member_id = ?", toMemberID).
		Where("message_id IN (?)", matching).
		Order("created_at DESC").
		Preload("Message").
		Take(&send).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery record: %w", err)
	}
	return send.Message, nil
}

const recipientsOfSQL = `SELECT sl.member_id FROM message_send_list sl
INNER JOIN message m ON m.id = sl.message_id
WHERE m.member_id = ?%s
GROUP BY sl.member_id
ORDER BY MAX(sl.created_at) DESC`

const sendersToSQL = `SELECT m.member_id FROM message m
INNER JOIN message_send_list sl ON sl.message_id = m.id
WHERE sl.member_id = ?%s
GROUP BY m.member_id
ORDER BY MAX(m.created_at) DESC`

// SenderList returns everyone memberID has exchanged messages with, most recent first.
func (r *messageRepository) SenderList(ctx context.Context, memberID uint64) ([]*dbmysql.Member, error) {
	filter := deletedFilter("m", r.includeDeleted)

	var recipients []uint64
	if err := r.db.WithContext(ctx).Raw(fmt.Sprintf(recipientsOfSQL, filter), memberID).Scan(&recipients).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	var senders []uint64
	if err := r.db.WithContext(ctx).Raw(fmt.Sprintf(sendersToSQL, filter), memberID).Scan(&senders).Error; err != nil {
		return nil, fmt.Errorf("failed to list senders: %w", err)
	}

	return r.members.GetMembersByIDs(ctx, common.MergeFirstSeen(recipients, senders))
}

const latestFromToSQL = `SELECT m.* FROM message m
WHERE m.id IN (SELECT message_id FROM message_send_list WHERE member_id = ?)
AND m.member_id = ?%s
ORDER BY m.created_at DESC, m.id DESC
LIMIT 1`

// LatestMemberMessage returns the newer of the latest message in each direction.
// Ties go to the message sent by myMemberID.
func (r *messageRepository) LatestMemberMessage(ctx context.Context, myMemberID, memberID uint64) (*dbmysql.Message, error) {
	query := fmt.Sprintf(latestFromToSQL, deletedFilter("m", r.includeDeleted))

	var mine []*dbmysql.Message
	if err := r.db.WithContext(ctx).Raw(query, memberID, myMemberID).Scan(&mine).Error; err != nil {
		return nil, fmt.Errorf("failed to get latest sent message: %w", err)
	}

	var theirs []*dbmysql.Message
	if err := r.db.WithContext(ctx).Raw(query, myMemberID, memberID).Scan(&theirs).Error; err != nil {
		return nil, fmt.Errorf("failed to get latest received message: %w", err)
	}

	switch {
	case len(mine) == 0 && len(theirs) == 0:
		return nil, nil
	case len(theirs) == 0:
		return mine[0], nil
	case len(mine) == 0:
		return theirs[0], nil
	case mine[0].CreatedAt.Before(theirs[0].CreatedAt):
		return theirs[0], nil
	default:
		return mine[0], nil
	}
}

// MemberMessages loads one batch of the conversation between the two members,
// newest first. A non-negative maxID only returns messages with a smaller id.
func (r *messageRepository) MemberMessages(ctx context.Context, myMemberID, memberID uint64, maxID int64) ([]*dbmysql.Message, error) {
	parties := []uint64{memberID, myMemberID}

	addressed := r.db.Model(&dbmysql.MessageSendList{}).
		Select("message_id").
		Where("member_id IN ?", parties)

	query := r.db.WithContext(ctx).
		Where("member_id IN ?", parties).
		Where("id IN (?)", addressed)
	if !r.includeDeleted {
		query = notDeleted(query)
	}
	if maxID >= 0 {
		query = query.Where("id < ?", maxID)
	}

	var messages []*dbmysql.Message
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(MemberMessagesLimit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get member messages: %w", err)
	}
	return messages, nil
}

// IsRecipient reports whether memberID has a delivery record for messageID.
func (r *messageRepository) IsRecipient(ctx context.Context, messageID, memberID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.MessageSendList{}).
		Where("message_id = ? AND member_id = ?", messageID, memberID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check delivery record: %w", err)
	}
	return count > 0, nil
}

func (r *messageRepository) MarkAsRead(ctx context.Context, messageID, recipientID uint64) error {
	result := r.db.WithContext(ctx).
		Model(&dbmysql.MessageSendList{}).
		Where("message_id = ? AND member_id = ?", messageID, recipientID).
		Update("is_read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark message as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: delivery record of message %d", common.ErrNotFound, messageID)
	}
	return nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID, ownerID uint64) error {
	result := r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("id = ? AND member_id = ?", messageID, ownerID).
		Update(softDeleteColumn, true)

	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: message %d", common.ErrNotFound, messageID)
	}
	return nil
}

// found turns gorm.ErrRecordNotFound into absence.
func found[T any](row *T, err error, msg string) (*T, error) {
	if err == nil {
		return row, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("%s: %w", msg, err)
}
