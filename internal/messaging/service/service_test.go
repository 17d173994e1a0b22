package service

//go:generate mockgen -source=service.go -destination=mocks/service-mocks.go -package=mocks IdentityResolver,EventPublisher,AuditEmitter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bizlink/internal/audit"
	identityModel "bizlink/internal/identity/models"
	"bizlink/internal/messaging/metrics"
	"bizlink/internal/messaging/service/mocks"
	"bizlink/internal/messaging/store"
	"bizlink/internal/realtime"
	dErrors "bizlink/pkg/domain-errors"
)

// promauto registers against the default registry, so the metrics instance is
// shared across the whole test binary.
var testMetrics = metrics.New()

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	store         *store.MemoryStore
	mockIdentity  *mocks.MockIdentityResolver
	mockPublisher *mocks.MockEventPublisher
	mockAudit     *mocks.MockAuditEmitter
	service       *Service

	individual *identityModel.Identity
	business   *identityModel.Identity
	business2  *identityModel.Identity
	admin      *identityModel.Identity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewMemory()
	s.mockIdentity = mocks.NewMockIdentityResolver(s.ctrl)
	s.mockPublisher = mocks.NewMockEventPublisher(s.ctrl)
	s.mockAudit = mocks.NewMockAuditEmitter(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, s.mockIdentity, s.mockPublisher, s.mockAudit, logger, testMetrics)

	s.individual = &identityModel.Identity{ID: "11111111-1111-1111-1111-111111111111", Role: identityModel.RoleIndividual, DisplayName: "Ada"}
	s.business = &identityModel.Identity{ID: "22222222-2222-2222-2222-222222222222", Role: identityModel.RoleBusiness, DisplayName: "Ted's Plumbing"}
	s.business2 = &identityModel.Identity{ID: "33333333-3333-3333-3333-333333333333", Role: identityModel.RoleBusiness, DisplayName: "Roof Right"}
	s.admin = &identityModel.Identity{ID: "44444444-4444-4444-4444-444444444444", Role: identityModel.RoleAdmin, DisplayName: "Ops"}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) expectResolve(identities ...*identityModel.Identity) {
	for _, identity := range identities {
		s.mockIdentity.EXPECT().Resolve(gomock.Any(), identity.ID).Return(identity, nil).AnyTimes()
	}
}

func (s *ServiceSuite) TestSend_Validation() {
	ctx := context.Background()

	s.Run("empty content rejected", func() {
		_, err := s.service.Send(ctx, s.individual.ID, s.business.ID, "   ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("self send rejected", func() {
		_, err := s.service.Send(ctx, s.individual.ID, s.individual.ID, "hello me")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("unknown receiver rejected as invalid argument", func() {
		s.expectResolve(s.individual)
		s.mockIdentity.EXPECT().
			Resolve(gomock.Any(), "ghost").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "identity not found"))

		_, err := s.service.Send(ctx, s.individual.ID, "ghost", "hello")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *ServiceSuite) TestSend_InitiationGate() {
	ctx := context.Background()

	s.Run("business to business forbidden", func() {
		s.expectResolve(s.business, s.business2)

		_, err := s.service.Send(ctx, s.business.ID, s.business2.ID, "partner up?")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("individual to admin forbidden", func() {
		s.expectResolve(s.individual, s.admin)

		_, err := s.service.Send(ctx, s.individual.ID, s.admin.ID, "hi ops")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestSend_HappyPathPublishesAndAudits() {
	ctx := context.Background()
	s.expectResolve(s.individual, s.business)

	var published realtime.Event
	s.mockPublisher.EXPECT().
		PublishEvent(gomock.Any(), s.business.ID, gomock.Any()).
		Do(func(_ context.Context, _ string, event realtime.Event) { published = event }).
		Times(1)
	s.mockAudit.EXPECT().
		Emit(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event audit.Event) {
			s.Equal(audit.ActionMessageSent, event.Action)
			s.Equal(s.individual.ID, event.ActorID)
		}).
		Times(1)

	resp, err := s.service.Send(ctx, s.individual.ID, s.business.ID, "  hello  ")
	s.Require().NoError(err)
	s.Equal("hello", resp.Content, "content is trimmed before persistence")
	s.Equal(s.individual.ID, resp.SenderID)
	s.Equal("Ada", resp.Sender.DisplayName)
	s.False(resp.Read)

	s.Equal(realtime.EventNewMessage, published.Type)
	s.Equal(resp.ConversationID, published.ConversationID)

	msgs, err := s.store.ListMessages(ctx, resp.ConversationID)
	s.Require().NoError(err)
	s.Len(msgs, 1)
}

func (s *ServiceSuite) TestSend_ReusesConversationForPair() {
	ctx := context.Background()
	s.expectResolve(s.individual, s.business)
	s.mockPublisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()

	first, err := s.service.Send(ctx, s.individual.ID, s.business.ID, "hello")
	s.Require().NoError(err)

	// Reply goes through the same conversation even though the direction
	// flips.
	second, err := s.service.Send(ctx, s.business.ID, s.individual.ID, "hello back")
	s.Require().NoError(err)
	s.Equal(first.ConversationID, second.ConversationID)
}

// A business cannot open a conversation with another business, but once one
// exists both sides can read and mark it. The seam between the two gates is
// deliberate.
func (s *ServiceSuite) TestBusinessPairConversationRemainsUsable() {
	ctx := context.Background()
	s.expectResolve(s.business, s.business2)

	conv, _, err := s.store.FindOrCreateConversation(ctx, s.business.ID, s.business2.ID)
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(ctx, conv.ID, s.business2.ID, s.business.ID, "legacy thread")
	s.Require().NoError(err)

	msgs, err := s.service.ListMessages(ctx, s.business.ID, conv.ID)
	s.Require().NoError(err)
	s.Len(msgs, 1)

	_, err = s.service.Send(ctx, s.business.ID, s.business2.ID, "still forbidden")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestListMessages_Gates() {
	ctx := context.Background()

	s.Run("malformed conversation id", func() {
		_, err := s.service.ListMessages(ctx, s.individual.ID, "not-a-uuid")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("unknown conversation", func() {
		_, err := s.service.ListMessages(ctx, s.individual.ID, "99999999-9999-9999-9999-999999999999")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-participant forbidden", func() {
		conv, _, err := s.store.FindOrCreateConversation(ctx, s.individual.ID, s.business.ID)
		s.Require().NoError(err)

		_, err = s.service.ListMessages(ctx, s.business2.ID, conv.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin participant blocks the thread", func() {
		s.expectResolve(s.individual, s.admin)
		conv, _, err := s.store.FindOrCreateConversation(ctx, s.individual.ID, s.admin.ID)
		s.Require().NoError(err)

		_, err = s.service.ListMessages(ctx, s.individual.ID, conv.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestMarkRead_NotifiesOtherParticipantOnce() {
	ctx := context.Background()
	s.expectResolve(s.individual, s.business)

	conv, _, err := s.store.FindOrCreateConversation(ctx, s.individual.ID, s.business.ID)
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(ctx, conv.ID, s.business.ID, s.individual.ID, "unread one")
	s.Require().NoError(err)
	_, err = s.store.AppendMessage(ctx, conv.ID, s.business.ID, s.individual.ID, "unread two")
	s.Require().NoError(err)

	s.mockPublisher.EXPECT().
		PublishEvent(gomock.Any(), s.business.ID, gomock.Any()).
		Do(func(_ context.Context, _ string, event realtime.Event) {
			s.Equal(realtime.EventMessagesRead, event.Type)
			s.Equal(conv.ID, event.ConversationID)
			s.Equal(s.individual.ID, event.ReaderID)
		}).
		Times(1)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(1)

	resp, err := s.service.MarkRead(ctx, s.individual.ID, conv.ID)
	s.Require().NoError(err)
	s.Equal(2, resp.ModifiedCount)

	// Second call has nothing to transition: no event, no audit entry.
	resp, err = s.service.MarkRead(ctx, s.individual.ID, conv.ID)
	s.Require().NoError(err)
	s.Equal(0, resp.ModifiedCount)
}

func (s *ServiceSuite) TestListConversations() {
	ctx := context.Background()
	s.expectResolve(s.individual, s.business, s.business2)
	s.mockPublisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).AnyTimes()

	_, err := s.service.Send(ctx, s.individual.ID, s.business.ID, "to the plumber")
	s.Require().NoError(err)
	_, err = s.service.Send(ctx, s.business2.ID, s.individual.ID, "roof quote")
	s.Require().NoError(err)

	conversations, err := s.service.ListConversations(ctx, s.individual.ID)
	s.Require().NoError(err)
	s.Require().Len(conversations, 2)

	// Most recently active first; the roofer wrote last.
	s.Equal("Roof Right", conversations[0].Counterpart.DisplayName)
	s.Equal(1, conversations[0].UnreadCount)
	s.Equal("Ted's Plumbing", conversations[1].Counterpart.DisplayName)
	s.Equal(0, conversations[1].UnreadCount, "own sends are never unread for the sender")
}

func (s *ServiceSuite) TestListConversations_UnresolvableCounterpartFallsBack() {
	ctx := context.Background()

	conv, _, err := s.store.FindOrCreateConversation(ctx, s.individual.ID, "55555555-5555-5555-5555-555555555555")
	s.Require().NoError(err)
	s.mockIdentity.EXPECT().
		Resolve(gomock.Any(), "55555555-5555-5555-5555-555555555555").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "identity not found"))

	conversations, err := s.service.ListConversations(ctx, s.individual.ID)
	s.Require().NoError(err)
	s.Require().Len(conversations, 1)
	s.Equal(conv.ID, conversations[0].ID)
	s.Equal("55555555-5555-5555-5555-555555555555", conversations[0].Counterpart.ID)
	s.Empty(conversations[0].Counterpart.DisplayName)
}
