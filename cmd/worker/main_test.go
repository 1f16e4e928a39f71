package main

import (
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type recordingAck struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (r *recordingAck) Ack(tag uint64, multiple bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked = append(r.acked, tag)
	return nil
}

func (r *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacked = append(r.nacked, tag)
	return nil
}

func (r *recordingAck) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func TestPool_AcksSuccessAndNacksFailure(t *testing.T) {
	ack := &recordingAck{}
	p := newPool(3, func(d amqp.Delivery) error {
		if string(d.Body) == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	for i, body := range []string{"ok", "bad", "ok", "ok", "bad"} {
		p.submit(amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1), Body: []byte(body)})
	}
	p.stop()

	assert.ElementsMatch(t, []uint64{1, 3, 4}, ack.acked)
	assert.ElementsMatch(t, []uint64{2, 5}, ack.nacked)
}
