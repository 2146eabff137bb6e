package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID string) *Client {
	return &Client{hub: h, userID: userID, send: make(chan []byte, sendBufferSize)}
}

func decode(t *testing.T, raw []byte) Event {
	t.Helper()
	var e Event
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestHub_BroadcastToUser(t *testing.T) {
	h := NewHub()
	a1, a2, b := newTestClient(h, "a"), newTestClient(h, "a"), newTestClient(h, "b")
	h.addClient(a1)
	h.addClient(a2)
	h.addClient(b)

	h.BroadcastToUser("a", Event{Op: OpWarningIssued})

	assert.Equal(t, OpWarningIssued, decode(t, <-a1.send).Op)
	assert.Equal(t, OpWarningIssued, decode(t, <-a2.send).Op)
	assert.Len(t, b.send, 0)
	assert.ElementsMatch(t, []string{"a", "b"}, h.GetOnlineUserIDs())
}

func TestHub_SeqIncreases(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "a")
	h.addClient(c)

	h.BroadcastToAll(Event{Op: OpVoteUpdate})
	h.BroadcastToAll(Event{Op: OpVoteUpdate})

	first, second := decode(t, <-c.send), decode(t, <-c.send)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestHub_DisconnectUserDrainsThenCloses(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "banned")
	h.addClient(c)

	h.BroadcastToUser("banned", Event{Op: OpBanIssued})
	h.DisconnectUser("banned")

	msg, ok := <-c.send
	require.True(t, ok, "queued frame survives the close")
	assert.Equal(t, OpBanIssued, decode(t, msg).Op)

	_, ok = <-c.send
	assert.False(t, ok)
	assert.Empty(t, h.GetOnlineUserIDs())

	// the read pump's unregister after a forced disconnect must not double close
	assert.NotPanics(t, func() { h.removeClient(c) })
}

func TestHub_OnUserFirstConnect(t *testing.T) {
	h := NewHub()
	calls := make(chan string, 4)
	h.OnUserFirstConnect(func(userID string) { calls <- userID })

	h.addClient(newTestClient(h, "a"))
	h.addClient(newTestClient(h, "a"))

	select {
	case id := <-calls:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("callback not fired")
	}

	select {
	case <-calls:
		t.Fatal("second connection must not count as first")
	case <-time.After(50 * time.Millisecond):
	}
}
