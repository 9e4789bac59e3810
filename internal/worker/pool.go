package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"
)

const maxAttempts = 3

// Sender delivers one rendered email.
type Sender interface {
	SendHTML(to, subject, htmlBody string) error
}

// Pool drains the notification queue with a fixed number of goroutines.
type Pool struct {
	redis       *redis.Client
	sender      Sender
	log         *logger.Logger
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, sender Sender, workerCount int, log *logger.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		sender:      sender,
		log:         log.With("component", "worker"),
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	p.log.Info("started notification workers", "count", p.workerCount)
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			p.log.Info("worker shutting down", "worker", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 5*time.Second, services.NotificationQueueName).Result()
		if err != nil {
			continue // timeout or transient error
		}
		if len(result) < 2 {
			continue
		}

		var job models.NotificationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			p.log.Error("failed to parse notification job", "worker", id, "error", err)
			continue
		}

		lockKey := fmt.Sprintf("notification_lock:%s", job.ID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 5*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		if err := p.process(&job); err != nil {
			p.handleFailure(ctx, &job, err)
		} else {
			p.log.Info("notification delivered", "job_id", job.ID, "kind", job.Kind)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(job *models.NotificationJob) error {
	if job.To == "" {
		return fmt.Errorf("notification %s has no recipient", job.ID)
	}
	return p.sender.SendHTML(job.To, job.Subject, job.Body)
}

// handleFailure requeues with exponential backoff until maxAttempts is reached.
func (p *Pool) handleFailure(ctx context.Context, job *models.NotificationJob, err error) {
	job.RetryCount++

	if job.RetryCount >= maxAttempts {
		p.log.Error("notification failed permanently", "job_id", job.ID, "kind", job.Kind, "error", err)
		return
	}

	p.log.Warn("notification failed, retrying", "job_id", job.ID, "attempt", job.RetryCount, "error", err)
	data, _ := json.Marshal(job)
	time.AfterFunc(backoff(job.RetryCount), func() {
		p.redis.LPush(context.Background(), services.NotificationQueueName, string(data))
	})
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
