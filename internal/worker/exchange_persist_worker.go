package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"constitution-gpt/internal/model"
	"constitution-gpt/internal/platform/rabbitmq"
	"constitution-gpt/internal/repository"
)

type ExchangeWriter interface {
	Create(ctx context.Context, exchange *model.ChatExchange) error
}

// ExchangePersistWorker consumes the persist queue and writes chat exchanges
// to the database.
type ExchangePersistWorker struct {
	conn      *amqp.Connection
	store     ExchangeWriter
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExchangePersistWorker(conn *amqp.Connection, store ExchangeWriter, queueName string, logger *zap.Logger) *ExchangePersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangePersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger.Named("persist_worker"),
	}
}

func (w *ExchangePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("exchange persist worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *ExchangePersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	ack, requeue := w.persist(ctx, d.Body)
	if ack {
		_ = d.Ack(false)
		return
	}
	_ = d.Nack(false, requeue && !d.Redelivered)
}

// persist decodes and stores one payload. It reports whether the delivery
// should be acked and, if not, whether a retry could succeed.
func (w *ExchangePersistWorker) persist(ctx context.Context, body []byte) (ack, requeue bool) {
	var exchange model.ChatExchange
	if err := json.Unmarshal(body, &exchange); err != nil {
		w.logger.Error("decode exchange failed", zap.Error(err))
		return false, false
	}
	if exchange.ID == "" || exchange.UserID == 0 {
		w.logger.Error("drop malformed exchange", zap.String("exchange_id", exchange.ID))
		return false, false
	}

	if err := w.store.Create(ctx, &exchange); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// already persisted by an earlier delivery
			return true, false
		}
		w.logger.Error("persist exchange failed", zap.String("exchange_id", exchange.ID), zap.Error(err))
		return false, true
	}
	return true, false
}

func (w *ExchangePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
