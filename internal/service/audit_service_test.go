package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/care-access/internal/config"
	"github.com/spec-kit/care-access/internal/domain"
	"github.com/spec-kit/care-access/internal/events"
)

func TestAuditService_LogsWithoutWebhook(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, zap.New(core), config.NotificationConfig{})
	audit.RegisterHandlers()

	for _, typ := range AuditedEvents {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: string(typ), Type: typ, PatientID: "p-1"}))
	}
	audit.Wait()

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, len(AuditedEvents))
	assert.Equal(t, "p-1", entries[0].ContextMap()["patient_id"])
}

func TestAuditService_PostsToWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []events.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e events.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL, WebhookTimeoutSeconds: 2})
	audit.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "e-1",
		Type:      events.EventEmergencyTokenRevoked,
		PatientID: "p-1",
		Actor:     events.Actor{Domain: domain.DomainStaff, SubjectID: "u-1"},
		Payload:   events.TokenRevokedPayload{TokenDigest: "abc"},
	})
	require.NoError(t, err)
	audit.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "e-1", received[0].ID)
	assert.Equal(t, events.EventEmergencyTokenRevoked, received[0].Type)
	assert.Equal(t, "u-1", received[0].Actor.SubjectID)
}

func TestAuditService_WebhookFailureIsLoggedOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: srv.URL})
	audit.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e-2", Type: events.EventEmergencyAccessDenied}))
	audit.Wait()

	assert.Equal(t, 1, logs.FilterMessage("audit webhook rejected event").Len())
}
