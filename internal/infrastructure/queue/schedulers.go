package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"cashfree-gateway/internal/config"
	"cashfree-gateway/internal/shared"
	"cashfree-gateway/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobsConfig
}

func NewScheduler(redisAddress string, jobConfig config.JobsConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterPaymentJobs() error {
	if err := s.registerReconcileStaleOrdersJob(); err != nil {
		return err
	}

	if err := s.registerRetryFailedWebhooksJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Reconcile Stale Orders
// ================================================
// Catches payments where the customer closed the browser before the
// redirect and the webhook never arrived. The sweep asks Cashfree directly,
// so an entry stuck in Initiated eventually settles either way.
func (s *Scheduler) registerReconcileStaleOrdersJob() error {
	payload, err := json.Marshal(shared.ReconcileStaleOrdersPayload{
		Limit: s.jobConfig.ReconcileBatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReconcileStaleOrders, payload)

	_, err = s.scheduler.Register(
		fmt.Sprintf("@every %s", s.jobConfig.ReconcileInterval),
		task,
		asynq.Queue(shared.QueuePayment),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register ReconcileStaleOrders job", err)
		return err
	}

	logger.Info("Registered ReconcileStaleOrders", map[string]interface{}{
		"interval": s.jobConfig.ReconcileInterval.String(),
	})
	return nil
}

// ================================================
// JOB 2: Retry Failed Webhooks
// ================================================
// Re-runs verified deliveries whose processing failed. Short interval:
// most failures are transient ordering problems and clear on the first
// retry.
func (s *Scheduler) registerRetryFailedWebhooksJob() error {
	payload, err := json.Marshal(shared.RetryFailedWebhooksPayload{
		Limit: s.jobConfig.ReconcileBatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeRetryFailedWebhooks, payload)

	_, err = s.scheduler.Register(
		fmt.Sprintf("@every %s", s.jobConfig.WebhookRetryEvery),
		task,
		asynq.Queue(shared.QueuePayment),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register RetryFailedWebhooks job", err)
		return err
	}

	logger.Info("Registered RetryFailedWebhooks", map[string]interface{}{
		"interval": s.jobConfig.WebhookRetryEvery.String(),
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
