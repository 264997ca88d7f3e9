package events

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsCompareByValue(t *testing.T) {
	assert.Equal(t, InsufficientFunds(1, 2), InsufficientFunds(1, 2))
	assert.NotEqual(t, TxNotFound(5), TxNotDisputed(5))
	assert.True(t, UnrecognisedTx(1, "withdfrawal") == UnrecognisedTx(1, "withdfrawal"))
}

func TestIsRejection(t *testing.T) {
	assert.False(t, StartOfLogger().IsRejection())
	assert.False(t, ProcessComplete().IsRejection())
	assert.False(t, ExternalErr("boom").IsRejection())

	for _, e := range []Event{
		AmountNegative(1),
		TxIDExists(1),
		TxNotFound(1),
		TxNotDisputed(1),
		InsufficientFunds(1, 1),
		UnauthorisedTx(1, 1),
		UnrecognisedTx(0, "x"),
	} {
		assert.True(t, e.IsRejection(), e.Kind)
	}
}

func TestMessageNamesIdentifiers(t *testing.T) {
	assert.Contains(t, InsufficientFunds(7, 42).Message(), "client 7")
	assert.Contains(t, InsufficientFunds(7, 42).Message(), "42")
	assert.Contains(t, UnrecognisedTx(3, "refund").Message(), `"refund"`)
	assert.Equal(t, "disk gone", ExternalErr("disk gone").Error())
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	s := Multi(a, nil, b)
	s.Record(TxNotFound(9))

	last, ok := a.Last()
	require.True(t, ok)
	assert.Equal(t, TxNotFound(9), last)
	assert.Len(t, b.Events(), 1)

	assert.Equal(t, Nop, Multi())
	assert.Same(t, a, Multi(nil, a))
}

func TestRecorderConcurrentUse(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Record(TxNotFound(uint32(i)))
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Events(), 50)
	assert.Equal(t, 50, r.Rejections())
}

func TestLoggerSinkWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewLoggerSink(logger).Record(UnauthorisedTx(2, 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, string(KindUnauthorisedTx), line["event"])
	assert.EqualValues(t, 2, line["client"])
	assert.EqualValues(t, 3, line["tx"])
	assert.True(t, strings.Contains(line["msg"].(string), "does not own"))
}

func TestNilLoggerSinkIsSafe(t *testing.T) {
	var s *LoggerSink
	assert.NotPanics(t, func() { s.Record(ProcessComplete()) })
}

type scopedRecorder struct {
	*Recorder
	runs []string
}

func (s *scopedRecorder) ForRun(runID string) Sink {
	s.runs = append(s.runs, runID)
	return s.Recorder
}

func TestMultiForRunScopesMembers(t *testing.T) {
	scoped := &scopedRecorder{Recorder: NewRecorder()}
	plain := NewRecorder()

	s, ok := Multi(scoped, plain).(RunScoped)
	require.True(t, ok)
	s.ForRun("run-7").Record(TxNotFound(1))

	assert.Equal(t, []string{"run-7"}, scoped.runs)
	assert.Len(t, scoped.Events(), 1)
	assert.Len(t, plain.Events(), 1)
}
