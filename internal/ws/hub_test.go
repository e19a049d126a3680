package ws

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	failNext bool
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return assert.AnError
	}
	buf := append([]byte(nil), data...)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegisterUnregisterCleansUpRooms(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}

	hub.Register(1, 10, conn)
	require.Len(t, hub.Snapshot(1), 1)

	hub.Unregister(1, 10, conn)
	assert.Empty(t, hub.Snapshot(1))
	assert.Empty(t, hub.rooms)
}

func TestUnregisterRemovesOnlyThatConnection(t *testing.T) {
	hub := NewHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register(1, 10, first)
	hub.Register(1, 10, second)
	hub.Unregister(1, 10, first)

	snapshot := hub.Snapshot(1)
	require.Len(t, snapshot, 1)
	assert.Same(t, second, snapshot[0].(*fakeConn))
}

func TestPresenceRefcount(t *testing.T) {
	hub := NewHub()

	hub.Join(10, "alice")
	hub.Join(10, "alice")
	hub.Join(20, "bob")

	assert.Equal(t, []string{"alice", "bob"}, hub.OnlineUsers())

	assert.False(t, hub.Leave(10))
	assert.Equal(t, []string{"alice", "bob"}, hub.OnlineUsers())

	assert.True(t, hub.Leave(10))
	assert.Equal(t, []string{"bob"}, hub.OnlineUsers())
}

func TestLeaveUnknownUser(t *testing.T) {
	hub := NewHub()
	assert.False(t, hub.Leave(99))
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub := NewHub()
	sender := &fakeConn{}
	other := &fakeConn{}

	hub.Register(1, 10, sender)
	hub.Register(1, 20, other)

	hub.Broadcast(1, []byte("hello"), sender)

	assert.Equal(t, 0, sender.frameCount())
	require.Equal(t, 1, other.frameCount())
	assert.Equal(t, "hello", string(other.frames[0]))
}

func TestBroadcastDropsFailedConnection(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{failNext: true}
	healthy := &fakeConn{}

	hub.Register(1, 10, broken)
	hub.Register(1, 20, healthy)

	hub.Broadcast(1, []byte("hello"), nil)

	assert.True(t, broken.isClosed())
	assert.Equal(t, 1, healthy.frameCount())

	// The broken connection is gone; the healthy one still receives.
	hub.Broadcast(1, []byte("again"), nil)
	require.Len(t, hub.Snapshot(1), 1)
	assert.Equal(t, 2, healthy.frameCount())
}

// overlapConn flags any write that starts while another is in flight.
type overlapConn struct {
	writing  int32
	overlaps int32
	writes   int32
}

func (c *overlapConn) WriteMessage(messageType int, data []byte) error {
	if !atomic.CompareAndSwapInt32(&c.writing, 0, 1) {
		atomic.AddInt32(&c.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.writes, 1)
	atomic.StoreInt32(&c.writing, 0)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestConcurrentBroadcastsSerializeWrites(t *testing.T) {
	hub := NewHub()
	inner := &overlapConn{}
	hub.Register(1, 10, newSafeConn(inner))

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(1, []byte("hello"), nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&inner.overlaps))
	assert.Equal(t, int32(senders), atomic.LoadInt32(&inner.writes))
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	hub.Broadcast(42, []byte("nobody"), nil)
	assert.Empty(t, hub.Snapshot(42))
}
