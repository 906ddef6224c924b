package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/auth"
	"chatrelay/internal/database"
	"chatrelay/internal/hub"
	"chatrelay/internal/models"
	"chatrelay/internal/service"
)

type testEnv struct {
	db     *database.Database
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("CHATRELAY_ENABLE_ENCRYPTION", "")

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := database.New(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &models.Config{}
	registry := hub.NewRegistry(logger)
	validator := auth.NewValidator(db)
	relationships := service.NewRelationshipService(db, cfg.Registry, logger)
	presence := service.NewPresenceService(db, registry, relationships, logger)
	router := service.NewRouterService(db, registry, relationships, logger)
	delivery := service.NewDeliveryService(db, registry, logger)
	socket := service.NewSocketService(cfg.Socket, registry, validator, router, delivery, presence, logger)

	server := NewServer(cfg, socket, delivery, validator, logger)
	ts := httptest.NewServer(server.router)
	t.Cleanup(ts.Close)

	return &testEnv{db: db, server: ts}
}

func (e *testEnv) saveSession(t *testing.T, token string, userID int64) {
	t.Helper()
	require.NoError(t, e.db.SaveSession(context.Background(), token, userID, "login", time.Now().Add(time.Hour)))
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) dialSocket(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	require.NoError(t, wsjson.Write(ctx, conn, models.InboundFrame{
		Type:  models.FrameTypeRegister,
		Token: token,
	}))
	return conn
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "counters")
	assert.Contains(t, body, "uptime_ms")
}

func TestFetchOfflineEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveSession(t, "tok-b", 2)

	msg := &models.Message{
		SenderID: 1, ReceiverID: 2,
		Kind: models.MessageKindText, Payload: "hi",
		Status: models.MessageStatusQueued,
	}
	require.NoError(t, env.db.SaveMessage(ctx, msg))

	resp := env.postJSON(t, "/api/v1/messages/offline", map[string]string{"token": "tok-b"})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, float64(msg.ID), first["id"])
	assert.Equal(t, "hi", first["payload"])

	stored, err := env.db.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, stored.Status)

	// Second fetch is empty; the batch was promoted.
	resp = env.postJSON(t, "/api/v1/messages/offline", map[string]string{"token": "tok-b"})
	body = decodeBody(t, resp)
	assert.Empty(t, body["messages"])
}

func TestFetchOfflineBadToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/messages/offline", map[string]string{"token": "bogus"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMarkAllDeliveredEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveSession(t, "tok-b", 2)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.SaveMessage(ctx, &models.Message{
			SenderID: 1, ReceiverID: 2,
			Kind: models.MessageKindText, Payload: "hi",
			Status: models.MessageStatusQueued,
		}))
	}

	resp := env.postJSON(t, "/api/v1/messages/delivered", map[string]string{"token": "tok-b"})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["promoted"])
}

func TestDeleteMessageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.saveSession(t, "tok-a", 1)
	env.saveSession(t, "tok-b", 2)

	msg := &models.Message{
		SenderID: 1, ReceiverID: 2,
		Kind: models.MessageKindText, Payload: "hi",
		Status: models.MessageStatusDelivered,
	}
	require.NoError(t, env.db.SaveMessage(ctx, msg))

	// The receiver cannot delete the sender's message.
	resp := env.postJSON(t, "/api/v1/messages/delete",
		map[string]interface{}{"token": "tok-b", "messageId": msg.ID})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.postJSON(t, "/api/v1/messages/delete",
		map[string]interface{}{"token": "tok-a", "messageId": msg.ID})
	body := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	stored, err := env.db.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, wsjson.Write(ctx, conn, models.InboundFrame{
		Type:  models.FrameTypeRegister,
		Token: "bogus",
	}))

	var frame map[string]interface{}
	err = wsjson.Read(ctx, conn, &frame)
	assert.Error(t, err)
}

func TestWebsocketLiveDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env.saveSession(t, "tok-a", 1)
	env.saveSession(t, "tok-b", 2)

	connB := env.dialSocket(t, ctx, "tok-b")
	// Give the server a moment to register B before A sends.
	require.Eventually(t, func() bool {
		online, err := env.db.IsUserOnline(context.Background(), 2)
		return err == nil && online
	}, 5*time.Second, 10*time.Millisecond)

	connA := env.dialSocket(t, ctx, "tok-a")

	require.NoError(t, wsjson.Write(ctx, connA, models.InboundFrame{
		Type:            models.FrameTypeMessage,
		ReceiverID:      2,
		MessageKind:     models.MessageKindText,
		ClientMessageID: "c1",
		Payload:         "hello",
	}))

	var receipt models.SavedReceipt
	require.NoError(t, wsjson.Read(ctx, connA, &receipt))
	assert.Equal(t, models.FrameTypeSavedReceipt, receipt.Type)
	assert.Equal(t, "c1", receipt.ClientMessageID)
	assert.Equal(t, int64(2), receipt.ReceiverID)
	assert.Equal(t, models.MessageStatusDelivered, receipt.Status)
	require.NotZero(t, receipt.ID)

	var push models.MessagePush
	require.NoError(t, wsjson.Read(ctx, connB, &push))
	assert.Equal(t, models.FrameTypeMessage, push.Type)
	assert.Equal(t, receipt.ID, push.ID)
	assert.Equal(t, int64(1), push.From)
	assert.Equal(t, "hello", push.Payload)

	// B marks it read; A gets the status notification.
	require.NoError(t, wsjson.Write(ctx, connB, models.InboundFrame{
		Type: models.FrameTypeReadAck,
		ID:   push.ID,
	}))

	var ack models.StatusAck
	require.NoError(t, wsjson.Read(ctx, connA, &ack))
	assert.Equal(t, models.FrameTypeStatusAck, ack.Type)
	assert.Equal(t, receipt.ID, ack.ID)
	assert.Equal(t, models.MessageStatusRead, ack.Status)

	stored, err := env.db.GetMessage(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, stored.Status)
}

func TestWebsocketQueuedForOfflineReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	env.saveSession(t, "tok-a", 1)
	env.saveSession(t, "tok-c", 3)

	connA := env.dialSocket(t, ctx, "tok-a")

	require.NoError(t, wsjson.Write(ctx, connA, models.InboundFrame{
		Type:            models.FrameTypeMessage,
		ReceiverID:      3,
		MessageKind:     models.MessageKindText,
		ClientMessageID: "c2",
		Payload:         "offline hello",
	}))

	var receipt models.SavedReceipt
	require.NoError(t, wsjson.Read(ctx, connA, &receipt))
	assert.Equal(t, models.MessageStatusQueued, receipt.Status)

	// The receiver later collects it via the polling fallback.
	resp := env.postJSON(t, "/api/v1/messages/offline", map[string]string{"token": "tok-c"})
	body := decodeBody(t, resp)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "offline hello", messages[0].(map[string]interface{})["payload"])
}

func TestWebsocketBlockedSendIsSilentlyDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env.saveSession(t, "tok-a", 1)
	require.NoError(t, env.db.SaveRelationship(context.Background(), &models.Relationship{
		OwnerID: 2, OtherID: 1, Status: models.RelationshipBlocked,
	}))

	connA := env.dialSocket(t, ctx, "tok-a")

	require.NoError(t, wsjson.Write(ctx, connA, models.InboundFrame{
		Type:        models.FrameTypeMessage,
		ReceiverID:  2,
		MessageKind: models.MessageKindText,
		Payload:     "should vanish",
	}))

	// No receipt comes back; the read times out.
	readCtx, readCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer readCancel()
	var frame map[string]interface{}
	err := wsjson.Read(readCtx, connA, &frame)
	assert.Error(t, err)

	// And nothing was persisted for the receiver.
	msgs, err := env.db.FetchAndPromoteQueued(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
