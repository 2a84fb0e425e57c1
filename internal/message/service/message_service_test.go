package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/dbmysql"
	"gosocialmsg/internal/message/repository"
	"gosocialmsg/internal/pager"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) SendMessage(ctx context.Context, recipients []uint64, subject, body string, opts repository.SendOptions) (*dbmysql.Message, error) {
	args := m.Called(ctx, recipients, subject, body, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) SaveDraft(ctx context.Context, fromMemberID uint64, subject, body string, returnMessageID *uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, fromMemberID, subject, body, returnMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) GetMessageByID(ctx context.Context, messageID uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) SendMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	args := m.Called(ctx, memberID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pager.Page[dbmysql.Message]), args.Error(1)
}

func (m *MockMessageRepository) DraftMessagePager(ctx context.Context, memberID uint64, page, size int) (*pager.Page[dbmysql.Message], error) {
	args := m.Called(ctx, memberID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pager.Page[dbmysql.Message]), args.Error(1)
}

func (m *MockMessageRepository) PreviousSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, message, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) NextSendMessage(ctx context.Context, message *dbmysql.Message, memberID uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, message, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) HensinMessage(ctx context.Context, memberID, messageID uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, memberID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) MessageByTypeAndIdentifier(ctx context.Context, fromMemberID, toMemberID uint64, typeName string, identifier int64) (*dbmysql.Message, error) {
	args := m.Called(ctx, fromMemberID, toMemberID, typeName, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) SenderList(ctx context.Context, memberID uint64) ([]*dbmysql.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbmysql.Member), args.Error(1)
}

func (m *MockMessageRepository) LatestMemberMessage(ctx context.Context, myMemberID, memberID uint64) (*dbmysql.Message, error) {
	args := m.Called(ctx, myMemberID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) MemberMessages(ctx context.Context, myMemberID, memberID uint64, maxID int64) ([]*dbmysql.Message, error) {
	args := m.Called(ctx, myMemberID, memberID, maxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbmysql.Message), args.Error(1)
}

func (m *MockMessageRepository) IsRecipient(ctx context.Context, messageID, memberID uint64) (bool, error) {
	args := m.Called(ctx, messageID, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) MarkAsRead(ctx context.Context, messageID, recipientID uint64) error {
	args := m.Called(ctx, messageID, recipientID)
	return args.Error(0)
}

func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID, ownerID uint64) error {
	args := m.Called(ctx, messageID, ownerID)
	return args.Error(0)
}

func TestMessageService_Send(t *testing.T) {
	tests := []struct {
		name        string
		from        uint64
		req         SendRequest
		mockSetup   func(*MockMessageRepository)
		expectError error
	}{
		{
			name: "successful send",
			from: 1,
			req:  SendRequest{Recipients: []uint64{2, 3}, Subject: "hi", Body: "hello", Type: "invite", Identifier: 7},
			mockSetup: func(repo *MockMessageRepository) {
				repo.On("SendMessage", mock.Anything, []uint64{2, 3}, "hi", "hello", repository.SendOptions{
					Type:         "invite",
					Identifier:   7,
					FromMemberID: 1,
				}).Return(&dbmysql.Message{ID: 10, MemberID: 1, IsSend: true}, nil)
			},
		},
		{
			name:        "anonymous sender",
			from:        0,
			req:         SendRequest{Recipients: []uint64{2}, Body: "hello"},
			mockSetup:   func(repo *MockMessageRepository) {},
			expectError: common.ErrUnauthenticated,
		},
		{
			name:        "blank body",
			from:        1,
			req:         SendRequest{Recipients: []uint64{2}, Body: "   "},
			mockSetup:   func(repo *MockMessageRepository) {},
			expectError: common.ErrInvalidInput,
		},
		{
			name: "repository error is returned unchanged",
			from: 1,
			req:  SendRequest{Recipients: []uint64{2}, Body: "hello", Type: "nope"},
			mockSetup: func(repo *MockMessageRepository) {
				repo.On("SendMessage", mock.Anything, []uint64{2}, "", "hello", mock.Anything).
					Return(nil, common.ErrUnknownMessageType)
			},
			expectError: common.ErrUnknownMessageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockMessageRepository)
			tt.mockSetup(repo)
			svc := NewMessageService(repo)

			message, err := svc.Send(context.Background(), tt.from, tt.req)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, message)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(10), message.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestMessageService_SaveDraft(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("SaveDraft", mock.Anything, uint64(1), "draft", "later", (*uint64)(nil)).
		Return(&dbmysql.Message{ID: 5, MemberID: 1}, nil)
	svc := NewMessageService(repo)

	draft, err := svc.SaveDraft(context.Background(), 1, "draft", "later")
	require.NoError(t, err)
	assert.False(t, draft.IsSend)

	_, err = svc.SaveDraft(context.Background(), 0, "draft", "later")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	repo.AssertExpectations(t)
}

func TestMessageService_Reply(t *testing.T) {
	original := &dbmysql.Message{ID: 10, MemberID: 1, IsSend: true, CreatedAt: time.Now()}

	t.Run("reply goes back to the original sender", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(10)).Return(original, nil)
		repo.On("IsRecipient", mock.Anything, uint64(10), uint64(2)).Return(true, nil)
		repo.On("SendMessage", mock.Anything, []uint64{1}, "re: hi", "hey", mock.MatchedBy(func(opts repository.SendOptions) bool {
			return opts.FromMemberID == 2 && opts.ReturnMessageID != nil && *opts.ReturnMessageID == 10
		})).Return(&dbmysql.Message{ID: 11, MemberID: 2, IsSend: true}, nil)

		svc := NewMessageService(repo)
		reply, err := svc.Reply(context.Background(), 2, 10, "re: hi", "hey")

		require.NoError(t, err)
		assert.Equal(t, uint64(11), reply.ID)
		repo.AssertExpectations(t)
	})

	t.Run("member who never received the original", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(10)).Return(original, nil)
		repo.On("IsRecipient", mock.Anything, uint64(10), uint64(5)).Return(false, nil)

		svc := NewMessageService(repo)
		reply, err := svc.Reply(context.Background(), 5, 10, "", "hey")

		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Nil(t, reply)
		repo.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing original", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(99)).Return(nil, nil)

		svc := NewMessageService(repo)
		_, err := svc.Reply(context.Background(), 2, 99, "", "hey")

		assert.ErrorIs(t, err, common.ErrNotFound)
		repo.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("drafts cannot be replied to", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(12)).Return(&dbmysql.Message{ID: 12, MemberID: 1}, nil)

		svc := NewMessageService(repo)
		_, err := svc.Reply(context.Background(), 2, 12, "", "hey")

		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("own message", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(10)).Return(original, nil)

		svc := NewMessageService(repo)
		_, err := svc.Reply(context.Background(), 1, 10, "", "hey")

		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}

func TestMessageService_Navigation(t *testing.T) {
	reference := &dbmysql.Message{ID: 20, MemberID: 1, IsSend: true}

	t.Run("previous and next use the loaded reference", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(20)).Return(reference, nil)
		repo.On("PreviousSendMessage", mock.Anything, reference, uint64(1)).Return(&dbmysql.Message{ID: 15}, nil)
		repo.On("NextSendMessage", mock.Anything, reference, uint64(1)).Return(nil, nil)

		svc := NewMessageService(repo)

		previous, err := svc.Previous(context.Background(), 1, 20)
		require.NoError(t, err)
		assert.Equal(t, uint64(15), previous.ID)

		next, err := svc.Next(context.Background(), 1, 20)
		require.NoError(t, err)
		assert.Nil(t, next)
		repo.AssertExpectations(t)
	})

	t.Run("someone else's message is not found", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(20)).Return(reference, nil)

		svc := NewMessageService(repo)
		_, err := svc.Previous(context.Background(), 2, 20)

		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(20)).Return(nil, errors.New("db down"))

		svc := NewMessageService(repo)
		_, err := svc.Next(context.Background(), 1, 20)

		assert.EqualError(t, err, "db down")
	})
}

func TestMessageService_Lookup_DefaultsType(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("MessageByTypeAndIdentifier", mock.Anything, uint64(1), uint64(2), "message", int64(0)).Return(nil, nil)

	svc := NewMessageService(repo)
	message, err := svc.Lookup(context.Background(), 1, 1, 2, "", 0)

	assert.NoError(t, err)
	assert.Nil(t, message)
	repo.AssertExpectations(t)
}

func TestMessageService_Lookup_Participants(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("MessageByTypeAndIdentifier", mock.Anything, uint64(3), uint64(4), "invite", int64(42)).
		Return(&dbmysql.Message{ID: 10, MemberID: 3}, nil)

	svc := NewMessageService(repo)

	// both the sender and the recipient may look the message up
	for _, caller := range []uint64{3, 4} {
		message, err := svc.Lookup(context.Background(), caller, 3, 4, "invite", 42)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), message.ID)
	}

	message, err := svc.Lookup(context.Background(), 1, 3, 4, "invite", 42)
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Nil(t, message)
	repo.AssertNumberOfCalls(t, "MessageByTypeAndIdentifier", 2)
}

func TestMessageService_ReplyOf(t *testing.T) {
	original := &dbmysql.Message{ID: 10, MemberID: 3, IsSend: true}
	reply := &dbmysql.Message{ID: 11, MemberID: 4}

	t.Run("replier reads their own reply", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("HensinMessage", mock.Anything, uint64(4), uint64(10)).Return(reply, nil)

		svc := NewMessageService(repo)
		message, err := svc.ReplyOf(context.Background(), 4, 4, 10)

		require.NoError(t, err)
		assert.Equal(t, uint64(11), message.ID)
		repo.AssertNotCalled(t, "GetMessageByID", mock.Anything, mock.Anything)
	})

	t.Run("original sender reads the reply", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(10)).Return(original, nil)
		repo.On("HensinMessage", mock.Anything, uint64(4), uint64(10)).Return(reply, nil)

		svc := NewMessageService(repo)
		message, err := svc.ReplyOf(context.Background(), 3, 4, 10)

		require.NoError(t, err)
		assert.Equal(t, uint64(11), message.ID)
		repo.AssertExpectations(t)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(10)).Return(original, nil)

		svc := NewMessageService(repo)
		message, err := svc.ReplyOf(context.Background(), 1, 4, 10)

		assert.ErrorIs(t, err, common.ErrForbidden)
		assert.Nil(t, message)
		repo.AssertNotCalled(t, "HensinMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown message", func(t *testing.T) {
		repo := new(MockMessageRepository)
		repo.On("GetMessageByID", mock.Anything, uint64(99)).Return(nil, nil)

		svc := NewMessageService(repo)
		_, err := svc.ReplyOf(context.Background(), 1, 4, 99)

		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestMessageService_Conversation(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("MemberMessages", mock.Anything, uint64(1), uint64(2), int64(-1)).
		Return([]*dbmysql.Message{{ID: 31}, {ID: 30}}, nil)
	repo.On("LatestMemberMessage", mock.Anything, uint64(1), uint64(2)).
		Return(&dbmysql.Message{ID: 31}, nil)

	svc := NewMessageService(repo)

	messages, err := svc.Conversation(context.Background(), 1, 2, -1)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	latest, err := svc.Latest(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(31), latest.ID)

	_, err = svc.Conversation(context.Background(), 1, 1, -1)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = svc.Latest(context.Background(), 1, 1)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	repo.AssertExpectations(t)
}

func TestMessageService_ReadAndDelete(t *testing.T) {
	repo := new(MockMessageRepository)
	repo.On("MarkAsRead", mock.Anything, uint64(10), uint64(2)).Return(nil)
	repo.On("SoftDelete", mock.Anything, uint64(10), uint64(1)).Return(nil)
	repo.On("SoftDelete", mock.Anything, uint64(11), uint64(1)).Return(common.ErrNotFound)

	svc := NewMessageService(repo)

	assert.NoError(t, svc.MarkAsRead(context.Background(), 2, 10))
	assert.NoError(t, svc.Delete(context.Background(), 1, 10))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, 11), common.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestMessageService_PassThrough(t *testing.T) {
	page := &pager.Page[dbmysql.Message]{Items: []dbmysql.Message{{ID: 1}}, Total: 1, Page: 1, PageSize: 20, LastPage: 1}

	repo := new(MockMessageRepository)
	repo.On("SendMessagePager", mock.Anything, uint64(1), 1, 20).Return(page, nil)
	repo.On("DraftMessagePager", mock.Anything, uint64(1), 2, 5).Return(&pager.Page[dbmysql.Message]{Page: 2, PageSize: 5, LastPage: 1}, nil)
	repo.On("HensinMessage", mock.Anything, uint64(2), uint64(10)).Return(&dbmysql.Message{ID: 11}, nil)
	repo.On("SenderList", mock.Anything, uint64(1)).Return([]*dbmysql.Member{{ID: 2, Name: "bob"}}, nil)

	svc := NewMessageService(repo)

	sent, err := svc.SentMessages(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	assert.Len(t, sent.Items, 1)

	drafts, err := svc.Drafts(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, drafts.Items)

	reply, err := svc.ReplyOf(context.Background(), 2, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), reply.ID)

	senders, err := svc.Senders(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "bob", senders[0].Name)
	repo.AssertExpectations(t)
}
