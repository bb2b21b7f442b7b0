package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/metrics"
	"github.com/edures/resourcedesk-backend/pkg/outbox/registry"
)

const notificationsConsumerName = "notifications"

type eventHandler interface {
	Handle(ctx context.Context, event *registry.ResolvedEvent) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type requestPurger interface {
	PurgeExpired(ctx context.Context, maxAge time.Duration) (int64, error)
}

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type pinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            pinger
	Redis         pinger
	PubSub        pinger
	Subscription  *gcppubsub.Subscriber
	Registry      registryResolver
	Handler       eventHandler
	Idempotency   idempotencyChecker
	Requests      requestPurger
	Notifications notificationPruner
	Metrics       *metrics.WorkerMetrics
}

// Service runs the domain event consumer and the retention sweeper.
type Service struct {
	cfg           *config.Config
	logg          *logger.Logger
	db            pinger
	redis         pinger
	pubsub        pinger
	subscription  *gcppubsub.Subscriber
	registry      registryResolver
	handler       eventHandler
	idempotency   idempotencyChecker
	requests      requestPurger
	notifications notificationPruner
	metrics       *metrics.WorkerMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Subscription == nil {
		return nil, errors.New("domain subscription is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Handler == nil {
		return nil, errors.New("event handler is required")
	}
	if params.Idempotency == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if params.Requests == nil {
		return nil, errors.New("request purger is required")
	}
	if params.Notifications == nil {
		return nil, errors.New("notification pruner is required")
	}

	mtr := params.Metrics
	if mtr == nil {
		mtr = metrics.NewWorkerMetrics(nil)
	}

	return &Service{
		cfg:           params.Config,
		logg:          params.Logger,
		db:            params.DB,
		redis:         params.Redis,
		pubsub:        params.PubSub,
		subscription:  params.Subscription,
		registry:      params.Registry,
		handler:       params.Handler,
		idempotency:   params.Idempotency,
		requests:      params.Requests,
		notifications: params.Notifications,
		metrics:       mtr,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
			if s.process(innerCtx, msg).nack {
				msg.Nack()
				return
			}
			msg.Ack()
		})
	}()

	sweepInterval := s.cfg.Retention.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 24 * time.Hour
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.sweepRetention(ctx)
		}
	}
}

type processResult struct {
	nack bool
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	start := time.Now()
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	event, err := s.eventFromMessage(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid domain message")
		s.metrics.IncSkipped("domain_event")
		return processResult{}
	}

	resolved, err := s.registry.Resolve(*event)
	if err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			fields["error"] = err.Error()
			s.logg.Warn(s.logg.WithFields(ctx, fields), "dropping undecodable domain event")
			s.metrics.IncSkipped("domain_event")
			return processResult{}
		}
		s.logg.Error(logCtx, "resolving domain event", err)
		s.metrics.IncFailure("domain_event")
		return processResult{nack: true}
	}

	fields["event_id"] = resolved.Envelope.EventID
	fields["event_type"] = string(event.EventType)
	fields["aggregate_id"] = event.AggregateID.String()
	logCtx = s.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		s.metrics.IncSkipped("domain_event")
		return processResult{}
	}

	already, err := s.idempotency.CheckAndMarkProcessed(logCtx, notificationsConsumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		s.metrics.IncFailure("domain_event")
		return processResult{nack: true}
	}
	if already {
		s.logg.Info(logCtx, "event already processed")
		s.metrics.IncSkipped("domain_event")
		return processResult{}
	}

	if err := s.handler.Handle(logCtx, resolved); err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "dropping unhandleable domain event")
			s.metrics.IncSkipped("domain_event")
			return processResult{}
		}
		s.logg.Error(logCtx, "handler error", err)
		s.metrics.IncFailure("domain_event")
		_ = s.idempotency.Delete(logCtx, notificationsConsumerName, eventID)
		return processResult{nack: true}
	}

	s.metrics.IncSuccess("domain_event")
	s.metrics.ObserveDuration("domain_event", time.Since(start))
	s.logg.Info(logCtx, "domain event handled")
	return processResult{}
}

// eventFromMessage rebuilds the outbox row shape from the published message so
// the shared registry can validate and decode it.
func (s *Service) eventFromMessage(msg *gcppubsub.Message) (*models.OutboxEvent, error) {
	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(msg.Attributes["aggregate_type"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID, err := uuid.Parse(strings.TrimSpace(msg.Attributes["aggregate_id"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_id: %w", err)
	}

	return &models.OutboxEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       msg.Data,
	}, nil
}

func (s *Service) sweepRetention(ctx context.Context) {
	start := time.Now()
	maxAge := s.cfg.Retention.MaxAge
	if maxAge <= 0 {
		return
	}

	removedRequests, err := s.requests.PurgeExpired(ctx, maxAge)
	if err != nil {
		s.logg.Error(ctx, "request retention sweep failed", err)
		s.metrics.IncFailure("retention_sweep")
		return
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removedNotifications, err := s.notifications.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logg.Error(ctx, "notification retention sweep failed", err)
		s.metrics.IncFailure("retention_sweep")
		return
	}

	s.metrics.IncSuccess("retention_sweep")
	s.metrics.ObserveDuration("retention_sweep", time.Since(start))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"removed_requests":      removedRequests,
		"removed_notifications": removedNotifications,
		"max_age":               maxAge.String(),
	}), "retention sweep complete")
}
