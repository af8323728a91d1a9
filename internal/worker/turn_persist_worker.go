package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"docchat/internal/model"
	"docchat/internal/repository"
)

const (
	turnBatchSize     = 16
	turnFlushInterval = 500 * time.Millisecond
)

type turnStore interface {
	CreateBatch(turns []model.Turn) error
}

// TurnPersistWorker drains completed conversation turns from the queue and
// writes them to the transcript table in small batches: a batch flushes when
// it fills or when the flush interval elapses, whichever comes first.
// Deliveries are acknowledged only after their batch is written.
type TurnPersistWorker struct {
	conn      *amqp.Connection
	store     turnStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnPersistWorker(conn *amqp.Connection, repo *repository.TurnRepository, queueName string) *TurnPersistWorker {
	return &TurnPersistWorker{
		conn:      conn,
		store:     repo,
		queueName: queueName,
	}
}

func (w *TurnPersistWorker) Start(ctx context.Context) error {
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

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.consume(workerCtx, deliveries)
	}()

	return nil
}

func (w *TurnPersistWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	type pending struct {
		turn     model.Turn
		delivery amqp.Delivery
	}

	var batch []pending
	flush := func() {
		if len(batch) == 0 {
			return
		}
		turns := make([]model.Turn, len(batch))
		for i := range batch {
			turns[i] = batch[i].turn
		}
		if err := w.store.CreateBatch(turns); err != nil {
			log.Printf("worker persist %d turns failed: %v", len(batch), err)
			for i := range batch {
				_ = batch[i].delivery.Nack(false, false)
			}
		} else {
			for i := range batch {
				_ = batch[i].delivery.Ack(false)
			}
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(turnFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case d, ok := <-deliveries:
			if !ok {
				flush()
				return
			}

			var turn model.Turn
			if err := json.Unmarshal(d.Body, &turn); err != nil {
				log.Printf("worker decode turn failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}

			batch = append(batch, pending{turn: turn, delivery: d})
			if len(batch) >= turnBatchSize {
				flush()
			}
		}
	}
}

func (w *TurnPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
