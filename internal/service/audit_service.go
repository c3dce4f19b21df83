package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/config"
	"github.com/spec-kit/care-access/internal/events"
)

// AuditedEvents are the event types every audit sink receives.
var AuditedEvents = []events.EventType{
	events.EventEmergencyTokenIssued,
	events.EventEmergencyTokenRevoked,
	events.EventEmergencyAccessed,
	events.EventEmergencyAccessDenied,
}

// AuditService records emergency-access events in the log and forwards them
// to an optional webhook.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *resty.Client
	inflight   sync.WaitGroup
}

// NewAuditService creates the service. The webhook client exists only when a URL is configured.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *AuditService {
	a := &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		timeout := time.Duration(cfg.WebhookTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		a.client = resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(time.Second).
			SetHeader("Content-Type", "application/json")
	}
	return a
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, typ := range AuditedEvents {
		a.dispatcher.Subscribe(typ, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("patient_id", event.PatientID),
		zap.String("actor_domain", string(event.Actor.Domain)),
		zap.String("actor_subject", event.Actor.SubjectID),
		zap.String("remote_ip", event.Actor.RemoteIP),
		zap.Any("payload", event.Payload),
	)
	if a.client == nil {
		return nil
	}

	// Delivery must not hold up the request that produced the event.
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		a.deliver(event)
	}()
	return nil
}

func (a *AuditService) deliver(event events.Event) {
	resp, err := a.client.R().SetBody(event).Post(a.cfg.WebhookURL)
	if err != nil {
		a.logger.Warn("audit webhook unreachable",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return
	}
	if resp.IsError() {
		a.logger.Warn("audit webhook rejected event",
			zap.String("event_id", event.ID),
			zap.Int("status_code", resp.StatusCode()),
		)
	}
}

// Wait blocks until in-flight webhook deliveries finish.
func (a *AuditService) Wait() {
	a.inflight.Wait()
}
