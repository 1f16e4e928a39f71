package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/chat-relay/internal/archive"
	"github.com/suPer8Hu/chat-relay/internal/config"
	"github.com/suPer8Hu/chat-relay/internal/db"
	"github.com/suPer8Hu/chat-relay/internal/logging"
	"github.com/suPer8Hu/chat-relay/internal/store/rabbitmq"
)

// The archive worker drains the transcript queue into MySQL.
func main() {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stdout,
		Pretty: cfg.LogPretty,
	})

	gdb := db.Connect(cfg.DBDSN)
	repo := archive.NewRepo(gdb)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logging.Fatal().Err(err).Msg("rabbit channel")
	}
	defer ch.Close()

	if err := rabbitmq.DeclareQueues(ch, cfg.RabbitQueue); err != nil {
		logging.Fatal().Err(err).Msg("queue declare")
	}

	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		logging.Fatal().Err(err).Msg("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("queue", cfg.RabbitQueue).Int("concurrency", concurrency).Msg("archive worker started")

	// in-flight deliveries finish on shutdown instead of dead-lettering
	pool := newPool(concurrency, func(d amqp.Delivery) error {
		hctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return repo.HandleDelivery(hctx, d.Body)
	})

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("worker shutting down")
			pool.stop()
			return

		case d, ok := <-msgs:
			if !ok {
				logging.Error().Msg("delivery channel closed")
				pool.stop()
				return
			}
			pool.submit(d)
		}
	}
}

type acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// pool runs handle on up to n deliveries at once. Failed deliveries are
// rejected without requeue so they dead-letter.
type pool struct {
	jobs chan amqp.Delivery
	done chan struct{}
}

func newPool(n int, handle func(amqp.Delivery) error) *pool {
	p := &pool{jobs: make(chan amqp.Delivery, n*2), done: make(chan struct{})}
	finished := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(workerID int) {
			defer func() { finished <- struct{}{} }()
			for d := range p.jobs {
				start := time.Now()
				settle(workerID, d.MessageId, &d, handle(d), time.Since(start))
			}
		}(i)
	}
	go func() {
		for i := 0; i < n; i++ {
			<-finished
		}
		close(p.done)
	}()
	return p
}

func (p *pool) submit(d amqp.Delivery) { p.jobs <- d }

func (p *pool) stop() {
	close(p.jobs)
	<-p.done
}

func settle(workerID int, id string, d acker, err error, cost time.Duration) {
	if err != nil {
		logging.Warn().Err(err).Int("worker", workerID).Str("event_id", id).Dur("cost", cost).Msg("archive failed")
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		logging.Warn().Err(err).Int("worker", workerID).Str("event_id", id).Msg("ack failed")
	}
}
