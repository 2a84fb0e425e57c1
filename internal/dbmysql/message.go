package dbmysql

import (
	"time"
)

// Message is one sent message or draft, owned by its sender.
// IsSend=false marks a draft.
type Message struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	MemberID        uint64    `gorm:"column:member_id;not null;index" json:"member_id"`
	Subject         string    `gorm:"column:subject;size:255" json:"subject"`
	Body            string    `gorm:"column:body;type:text" json:"body"`
	MessageTypeID   uint64    `gorm:"column:message_type_id;not null;index" json:"message_type_id"`
	ForeignID       int64     `gorm:"column:foreign_id;not null" json:"foreign_id"`
	IsSend          bool      `gorm:"column:is_send;not null" json:"is_send"`
	IsDeleted       bool      `gorm:"column:is_deleted;not null" json:"is_deleted"`
	ReturnMessageID *uint64   `gorm:"column:return_message_id;index" json:"return_message_id,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "message"
}

// MessageSendList is the delivery record of a Message for one recipient.
type MessageSendList struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	MessageID uint64    `gorm:"column:message_id;not null;uniqueIndex:idx_message_recipient" json:"message_id"`
	MemberID  uint64    `gorm:"column:member_id;not null;uniqueIndex:idx_message_recipient;index" json:"member_id"`
	IsRead    bool      `gorm:"column:is_read;not null" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Message *Message `gorm:"foreignKey:MessageID" json:"message,omitempty"`
}

func (MessageSendList) TableName() string {
	return "message_send_list"
}

type MessageType struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TypeName string `gorm:"column:type_name;size:64;uniqueIndex;not null" json:"type_name"`
}

func (MessageType) TableName() string {
	return "message_type"
}

// DefaultMessageType is the type every plain member-to-member message carries
const DefaultMessageType = "message"
