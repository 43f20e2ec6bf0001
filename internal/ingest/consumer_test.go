package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itrecruiter/candidatesearch/internal/candidate"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
	requeue  []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	return f.Reject(tag, requeue)
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

type fakeIndexer struct {
	mu             sync.Mutex
	lexicalUpserts []string
	vectorUpserts  []string
	deletes        []string
	failLexical    bool
	failVector     bool
	failDelete     bool
}

func (f *fakeIndexer) UpsertLexical(ctx context.Context, c candidate.Candidate) error {
	if f.failLexical {
		return assert.AnError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lexicalUpserts = append(f.lexicalUpserts, c.ID)
	return nil
}

func (f *fakeIndexer) UpsertVector(ctx context.Context, c candidate.Candidate) error {
	if f.failVector {
		return assert.AnError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorUpserts = append(f.vectorUpserts, c.ID)
	return nil
}

func (f *fakeIndexer) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return assert.AnError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func delivery(routingKey string, body any, ack *fakeAcknowledger, tag uint64) amqp.Delivery {
	payload, _ := json.Marshal(body)
	return amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   routingKey,
		Body:         payload,
		DeliveryTag:  tag,
	}
}

func TestConsumer_HandleUpsert_WritesLexicalThenVectorThenAcks(t *testing.T) {
	idx := &fakeIndexer{}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery(RoutingCreated, candidate.Candidate{ID: "cand-1"}, ack, 1)
	c.handleDelivery(context.Background(), d)
	c.pool.Wait()

	assert.Equal(t, []string{"cand-1"}, idx.lexicalUpserts)
	assert.Equal(t, []string{"cand-1"}, idx.vectorUpserts)
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Empty(t, ack.rejected)
}

func TestConsumer_HandleUpsert_MalformedPayloadRejectsNoRequeue(t *testing.T) {
	idx := &fakeIndexer{}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := amqp.Delivery{Acknowledger: ack, RoutingKey: RoutingCreated, Body: []byte("not json"), DeliveryTag: 2}
	c.handleDelivery(context.Background(), d)
	c.pool.Wait()

	assert.Equal(t, []uint64{2}, ack.rejected)
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Empty(t, ack.acked)
}

func TestConsumer_HandleUpsert_LexicalFailureRejectsWithoutSubmittingVectorWork(t *testing.T) {
	idx := &fakeIndexer{failLexical: true}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery(RoutingCreated, candidate.Candidate{ID: "cand-1"}, ack, 3)
	c.handleDelivery(context.Background(), d)
	c.pool.Wait()

	assert.Equal(t, []uint64{3}, ack.rejected)
	assert.Empty(t, idx.vectorUpserts)
}

func TestConsumer_HandleUpsert_VectorFailureRejectsNoRequeue(t *testing.T) {
	idx := &fakeIndexer{failVector: true}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery(RoutingUpdated, candidate.Candidate{ID: "cand-1"}, ack, 4)
	c.handleDelivery(context.Background(), d)
	c.pool.Wait()

	assert.Equal(t, []uint64{4}, ack.rejected)
	assert.Equal(t, []string{"cand-1"}, idx.lexicalUpserts)
}

func TestConsumer_HandleDelete_AcksOnSuccess(t *testing.T) {
	idx := &fakeIndexer{}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery(RoutingDeleted, deletedPayload{ID: "cand-1"}, ack, 5)
	c.handleDelivery(context.Background(), d)

	assert.Equal(t, []string{"cand-1"}, idx.deletes)
	assert.Equal(t, []uint64{5}, ack.acked)
}

func TestConsumer_HandleDelete_MissingIDRejectsNoRequeue(t *testing.T) {
	idx := &fakeIndexer{}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery(RoutingDeleted, deletedPayload{}, ack, 6)
	c.handleDelivery(context.Background(), d)

	assert.Equal(t, []uint64{6}, ack.rejected)
	assert.Empty(t, idx.deletes)
}

func TestConsumer_HandleDelivery_UnknownRoutingKeyRejectsNoRequeue(t *testing.T) {
	idx := &fakeIndexer{}
	c := New(Config{ExchangeName: "candidates"}, idx, nil)
	ack := &fakeAcknowledger{}

	d := delivery("candidate.unknown", struct{}{}, ack, 7)
	c.handleDelivery(context.Background(), d)

	assert.Equal(t, []uint64{7}, ack.rejected)
	assert.Equal(t, []bool{false}, ack.requeue)
}

func TestConfig_WithDefaults_DerivesQueueNameFromExchange(t *testing.T) {
	cfg := Config{ExchangeName: "candidates"}.withDefaults()
	require.Equal(t, "candidates.queue", cfg.QueueName)
	assert.Equal(t, "candidate.*", cfg.RoutingPattern)
	assert.Equal(t, defaultMaxConnectAttempts, cfg.MaxConnectAttempts)
}
