package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"dhub/config"
	"dhub/services/flowstate"
	"dhub/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeFlowReminder = "flow:reminder"

// ReminderPayload identifies a pending booking to re-check after the
// reminder delay.
type ReminderPayload struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
}

var reminderClient *asynq.Client

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitReminderClient prepares the task enqueue client.
func InitReminderClient() {
	reminderClient = asynq.NewClient(redisOpts())
}

// EnqueueFlowReminder schedules a check on a pending booking after the
// given delay. Failures are non-fatal; a lost reminder only loses the
// abandoned-flow signal.
func EnqueueFlowReminder(sessionID, orderID string, delay time.Duration) error {
	if reminderClient == nil {
		InitReminderClient()
	}
	payload, err := json.Marshal(ReminderPayload{SessionID: sessionID, OrderID: orderID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeFlowReminder, payload)
	_, err = reminderClient.Enqueue(task, asynq.ProcessIn(delay))
	return err
}

// InitReminderWorker runs the async worker in background.
func InitReminderWorker(store *flowstate.Store) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeFlowReminder, handleFlowReminder(store))

	go func() {
		log.Println("[FlowReminder] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[FlowReminder] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[FlowReminder] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleFlowReminder fires after the reminder delay: a flow whose
// pending booking still matches the task was never confirmed.
func handleFlowReminder(store *flowstate.Store) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := zap.L()

		var p ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("flow reminder: invalid payload", zap.Error(err))
			return err
		}

		state, err := store.Get(ctx, p.SessionID)
		if err != nil {
			logger.Warn("flow reminder: failed to load flow state",
				zap.String("sessionId", p.SessionID), zap.Error(err))
			return err
		}

		if state.PendingBooking == nil || state.PendingBooking.OrderID != p.OrderID {
			// Confirmed, replaced, or expired since; nothing to do.
			return nil
		}

		utils.AbandonedFlowsTotal.Inc()
		logger.Warn("booking flow abandoned before payment",
			zap.String("sessionId", p.SessionID),
			zap.String("orderId", p.OrderID))
		return nil
	}
}
