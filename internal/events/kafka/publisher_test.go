package kafka

import (
	"context"
	"encoding/json"
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/logging"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisherEncodesEvent(t *testing.T) {
	w := &fakeWriter{}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newPublisher(w, logging.Discard())
	p.now = func() time.Time { return at }

	p.ForRun("run-1").Record(events.UnauthorisedTx(2, 3))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "2", string(w.msgs[0].Key))

	var got envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, events.UnauthorisedTx(2, 3), got.Event)
	assert.Equal(t, events.UnauthorisedTx(2, 3).Message(), got.Message)
	assert.True(t, at.Equal(got.At))
}

func TestPublisherDropsOnWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newPublisher(w, logging.Discard())

	assert.NotPanics(t, func() { p.Record(events.TxNotFound(1)) })
	assert.Empty(t, w.msgs)
}

func TestPublisherClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newPublisher(w, nil).Close())
	assert.True(t, w.closed)
}

func TestNewPublisherDefaultsTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "", nil)
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, kw.Topic)
}

func TestNewWriterDoesNotWaitForBatches(t *testing.T) {
	kw := newWriter([]string{"localhost:9092"}, "ledger", nil)

	assert.True(t, kw.Async)
	assert.LessOrEqual(t, kw.BatchTimeout, 10*time.Millisecond)
	assert.NotNil(t, kw.Completion)
	assert.Equal(t, "ledger", kw.Topic)
}

func TestCompletionLogsDeliveryFailure(t *testing.T) {
	var buf bytes.Buffer
	done := completion(logging.NewWithWriter(&buf, "info"))

	done([]kafka.Message{{Value: []byte("x")}}, nil)
	assert.Empty(t, buf.String())

	done([]kafka.Message{{Value: []byte("x")}, {Value: []byte("y")}}, errors.New("leader not available"))
	assert.Contains(t, buf.String(), "deliver events")
	assert.Contains(t, buf.String(), "leader not available")
	assert.Contains(t, buf.String(), `"messages":2`)
}

func TestRecordReturnsPromptlyWithoutBroker(t *testing.T) {
	p := NewPublisher([]string{"127.0.0.1:1"}, "", logging.Discard())
	defer p.Close()

	start := time.Now()
	for tx := uint32(1); tx <= 5; tx++ {
		p.Record(events.TxNotFound(tx))
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}
