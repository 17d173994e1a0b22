package httptransport_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizlink/internal/audit"
	identityHandler "bizlink/internal/identity/handler"
	identityModel "bizlink/internal/identity/models"
	identityService "bizlink/internal/identity/service"
	identityStore "bizlink/internal/identity/store"
	jwttoken "bizlink/internal/jwt_token"
	messagingHandler "bizlink/internal/messaging/handler"
	messagingMetrics "bizlink/internal/messaging/metrics"
	messagingModels "bizlink/internal/messaging/models"
	messagingService "bizlink/internal/messaging/service"
	messagingStore "bizlink/internal/messaging/store"
	"bizlink/internal/platform/metrics"
	"bizlink/internal/realtime"
	realtimeMetrics "bizlink/internal/realtime/metrics"
	httptransport "bizlink/internal/transport/http"
	dErrors "bizlink/pkg/domain-errors"
	"bizlink/pkg/testutil"
)

// Shared across the test binary: promauto registers against the default
// registry.
var (
	httpMetrics = metrics.New()
	msgMetrics  = messagingMetrics.New()
	rtMetrics   = realtimeMetrics.New()
)

// newTestRouter wires the full HTTP surface on in-memory stores.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewJWTService("router-test-key", "bizlink", "bizlink-api")
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	idSvc := identityService.New(identityStore.NewMemory(), tokens, time.Hour)
	gateway := realtime.NewGateway(logger, rtMetrics)
	auditPublisher := audit.NewPublisher(16, logger)
	msgSvc := messagingService.New(
		messagingStore.NewMemory(), idSvc, gateway, auditPublisher, logger, msgMetrics)

	return httptransport.NewRouter(httptransport.Deps{
		Identity:  identityHandler.New(idSvc, logger, validator),
		Messaging: messagingHandler.New(msgSvc, logger, validator),
		Realtime:  realtime.NewHandler(gateway, validator, logger),
		Metrics:   httpMetrics,
		Logger:    logger,
	})
}

func registerAndLogin(t *testing.T, router http.Handler, email, role, displayName string) (string, string) {
	t.Helper()

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, "POST", "/api/auth/register", map[string]string{
		"email":        email,
		"password":     "correct horse battery",
		"role":         role,
		"display_name": displayName,
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	registered := testutil.UnmarshalResponse[identityModel.PublicIdentity](t, rr)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	login := testutil.UnmarshalResponse[identityModel.LoginResponse](t, rr)

	return registered.ID, login.AccessToken
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, "GET", "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, "GET", "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, string(testutil.ReadBody(t, rr)), "http_request_duration_seconds")
}

func TestRouter_AuthRequired(t *testing.T) {
	router := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, "GET", "/api/conversations"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	req := testutil.NewRequest(t, "GET", "/api/conversations")
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestRouter_MessagingFlow(t *testing.T) {
	router := newTestRouter(t)

	adaID, adaToken := registerAndLogin(t, router, "ada@example.com", "individual", "Ada")
	tedID, tedToken := registerAndLogin(t, router, "ted@example.com", "business", "Ted's Plumbing")

	// Ada opens the conversation.
	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, "POST", "/api/messages", map[string]string{
		"receiver_id": tedID,
		"content":     "is my quote ready?",
	}), adaToken))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	sent := testutil.UnmarshalResponse[messagingModels.MessageResponse](t, rr)
	require.NotEmpty(t, sent.ConversationID)
	assert.Equal(t, adaID, sent.SenderID)
	assert.Equal(t, "Ada", sent.Sender.DisplayName)

	// Ted sees the conversation with one unread message.
	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, "GET", "/api/conversations"), tedToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	conversations := testutil.UnmarshalResponse[[]messagingModels.ConversationResponse](t, rr)
	require.Len(t, *conversations, 1)
	assert.Equal(t, 1, (*conversations)[0].UnreadCount)
	assert.Equal(t, "Ada", (*conversations)[0].Counterpart.DisplayName)

	// Ted reads the thread and marks it read.
	path := fmt.Sprintf("/api/conversations/%s/messages", sent.ConversationID)
	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, "GET", path), tedToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	messages := testutil.UnmarshalResponse[[]messagingModels.Message](t, rr)
	require.Len(t, *messages, 1)
	assert.Equal(t, "is my quote ready?", (*messages)[0].Content)

	path = fmt.Sprintf("/api/conversations/%s/read", sent.ConversationID)
	rr = testutil.DoRequest(router, authed(testutil.NewRequest(t, "PATCH", path), tedToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	marked := testutil.UnmarshalResponse[messagingModels.MarkReadResponse](t, rr)
	assert.Equal(t, 1, marked.ModifiedCount)

	// Ted replies through the same conversation.
	rr = testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, "POST", "/api/messages", map[string]string{
		"receiver_id": adaID,
		"content":     "ready tomorrow",
	}), tedToken))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	reply := testutil.UnmarshalResponse[messagingModels.MessageResponse](t, rr)
	assert.Equal(t, sent.ConversationID, reply.ConversationID)
}

func TestRouter_BusinessCannotInitiateWithBusiness(t *testing.T) {
	router := newTestRouter(t)

	_, tedToken := registerAndLogin(t, router, "ted@example.com", "business", "Ted's Plumbing")
	roofID, _ := registerAndLogin(t, router, "roof@example.com", "business", "Roof Right")

	rr := testutil.DoRequest(router, authed(testutil.NewJSONRequest(t, "POST", "/api/messages", map[string]string{
		"receiver_id": roofID,
		"content":     "partnership?",
	}), tedToken))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeForbidden))
}

func TestRouter_SearchExcludesCallerAndAdmins(t *testing.T) {
	router := newTestRouter(t)

	_, adaToken := registerAndLogin(t, router, "ada@example.com", "individual", "Ada")
	registerAndLogin(t, router, "ted@example.com", "business", "Ted's Plumbing")
	registerAndLogin(t, router, "ops@example.com", "admin", "Ops")

	rr := testutil.DoRequest(router, authed(testutil.NewRequest(t, "GET", "/api/users/search?query="), adaToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	results := testutil.UnmarshalResponse[[]identityModel.PublicIdentity](t, rr)
	require.Len(t, *results, 1)
	assert.Equal(t, "Ted's Plumbing", (*results)[0].DisplayName)
}
