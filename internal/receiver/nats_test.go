// ABOUTME: Tests for the NATS receiver
// ABOUTME: Delivers messages through a mock connection in publish order
package receiver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNATSConnection struct {
	mu      sync.Mutex
	subject string
	handler nats.MsgHandler
	closed  bool
}

func (m *mockNATSConnection) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nats.ErrConnectionClosed
	}
	m.subject = subject
	m.handler = cb
	return &nats.Subscription{}, nil
}

func (m *mockNATSConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockNATSConnection) publish(subject string, data []byte) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	h(&nats.Msg{Subject: subject, Data: data})
}

func (m *mockNATSConnection) subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

func runNATS(t *testing.T, sink Sink, guard *Guard) (*NATSReceiver, *mockNATSConnection, func()) {
	t.Helper()
	conn := &mockNATSConnection{}
	r := NewNATSReceiverWithConnection(NATSConfig{Name: "kitchen"}, sink, guard, conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, conn.subscribed, time.Second, time.Millisecond)
	return r, conn, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "shairport.kitchen", Subject("kitchen"))
}

func TestNATSStreamLifecycle(t *testing.T) {
	sink := newRecordingSink()
	r, conn, stop := runNATS(t, sink, nil)

	assert.Equal(t, "shairport.kitchen.>", conn.subject)

	header, err := json.Marshal(pcmHeader)
	require.NoError(t, err)

	conn.publish("shairport.kitchen.pcm", []byte{9, 9, 9, 9}) // before start, ignored
	conn.publish("shairport.kitchen.start", header)
	assert.True(t, r.Active())
	conn.publish("shairport.kitchen.pcm", []byte{1, 0, 2, 0})
	conn.publish("shairport.kitchen.pcm", []byte{3, 0, 4, 0})
	conn.publish("shairport.kitchen.stop", nil)
	assert.False(t, r.Active())

	starts, stops, data := sink.snapshot()
	assert.Equal(t, []int{44100}, starts)
	assert.Equal(t, 1, stops)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0, 4, 0}, data)

	stop()
	assert.True(t, conn.closed)
}

func TestNATSRejectsRateMismatch(t *testing.T) {
	sink := newRecordingSink()
	r, conn, stop := runNATS(t, sink, nil)
	defer stop()

	header, err := json.Marshal(Header{SampleRate: 48000, Channels: 2, BitDepth: 16})
	require.NoError(t, err)
	conn.publish("shairport.kitchen.start", header)
	conn.publish("shairport.kitchen.pcm", []byte{1, 0, 2, 0})

	assert.False(t, r.Active())
	starts, _, data := sink.snapshot()
	assert.Empty(t, starts)
	assert.Empty(t, data)
}

func TestNATSRespectsGuard(t *testing.T) {
	guard := &Guard{}
	require.True(t, guard.Acquire("websocket-stream"))

	r, conn, stop := runNATS(t, newRecordingSink(), guard)
	defer stop()

	header, err := json.Marshal(pcmHeader)
	require.NoError(t, err)
	conn.publish("shairport.kitchen.start", header)

	assert.False(t, r.Active())
	assert.Equal(t, "websocket-stream", guard.Owner())
}

func TestNATSRestartReplacesSession(t *testing.T) {
	sink := newRecordingSink()
	r, conn, stop := runNATS(t, sink, nil)
	defer stop()

	header, err := json.Marshal(pcmHeader)
	require.NoError(t, err)
	conn.publish("shairport.kitchen.start", header)
	conn.publish("shairport.kitchen.start", header)

	assert.True(t, r.Active())
	starts, stops, _ := sink.snapshot()
	assert.Equal(t, []int{44100, 44100}, starts)
	assert.Equal(t, 1, stops)
}
