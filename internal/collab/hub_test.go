package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func join(t *testing.T, hub *Hub, userID, canvasID, clientID string) *Client {
	t.Helper()
	c := NewClient(hub, nil, userID, strings.ToUpper(userID), canvasID, clientID)
	require.True(t, hub.Register(c))
	welcome := recv(t, c)
	require.Equal(t, TypeWelcome, welcome.Type)
	state := recv(t, c)
	require.Equal(t, TypePresenceState, state.Type)
	return c
}

func TestHubJoinPresenceLeave(t *testing.T) {
	hub := startHub(t)

	alice := join(t, hub, "alice", "c1", "a1")
	bob := join(t, hub, "bob", "c1", "b1")
	assert.Equal(t, 2, hub.Viewers("c1"))

	joined := recv(t, alice)
	assert.Equal(t, TypePresenceJoin, joined.Type)
	var jp PresenceJoinPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &jp))
	assert.Equal(t, "bob", jp.UserID)
	assert.Equal(t, "BOB", jp.DisplayName)

	payload, err := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 10, Y: 20}, Devices: []int{3}})
	require.NoError(t, err)
	hub.handleMessage(bob, &Message{Type: TypePresenceUpdate, Payload: payload})

	update := recv(t, alice)
	assert.Equal(t, TypePresenceUpdate, update.Type)
	assert.Equal(t, "bob", update.UserID)
	var pp PresencePayload
	require.NoError(t, json.Unmarshal(update.Payload, &pp))
	assert.Equal(t, []int{3}, pp.Devices)
	assert.Equal(t, "BOB", pp.DisplayName)

	// A late joiner sees bob's presence in the initial state.
	carol := NewClient(hub, nil, "carol", "CAROL", "c1", "c1x")
	require.True(t, hub.Register(carol))
	assert.Equal(t, TypeWelcome, recv(t, carol).Type)
	state := recv(t, carol)
	var sp PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &sp))
	require.Contains(t, sp.Presences, "b1")
	assert.Equal(t, 10.0, sp.Presences["b1"].Cursor.X)
	assert.Equal(t, "bob", sp.Presences["b1"].UserID)

	hub.Unregister(bob)
	for _, c := range []*Client{alice, carol} {
		var msg Message
		for msg.Type != TypePresenceLeave {
			msg = recv(t, c)
		}
		assert.Equal(t, "bob", msg.UserID)
		assert.Equal(t, "b1", msg.ClientID)
	}

	// Drains until the hub closes the channel.
	for range bob.send {
	}
	assert.Equal(t, 2, hub.Viewers("c1"))
}

func TestHubPresencePerConnection(t *testing.T) {
	hub := startHub(t)

	alice := join(t, hub, "alice", "c1", "a1")
	tab1 := join(t, hub, "bob", "c1", "b1")
	tab2 := join(t, hub, "bob", "c1", "b2")

	for _, tab := range []*Client{tab1, tab2} {
		payload, err := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 1, Y: 1}})
		require.NoError(t, err)
		hub.handleMessage(tab, &Message{Type: TypePresenceUpdate, Payload: payload})
	}

	hub.Unregister(tab1)
	var msg Message
	for msg.Type != TypePresenceLeave {
		msg = recv(t, alice)
	}
	assert.Equal(t, "b1", msg.ClientID)

	late := NewClient(hub, nil, "carol", "CAROL", "c1", "c1x")
	require.True(t, hub.Register(late))
	assert.Equal(t, TypeWelcome, recv(t, late).Type)
	state := recv(t, late)
	var sp PresenceStatePayload
	require.NoError(t, json.Unmarshal(state.Payload, &sp))
	assert.NotContains(t, sp.Presences, "b1")
	require.Contains(t, sp.Presences, "b2")
	assert.Equal(t, "bob", sp.Presences["b2"].UserID)
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := startHub(t)

	alice := join(t, hub, "alice", "c1", "a1")
	other := join(t, hub, "zed", "c2", "z1")

	hub.CanvasUpdated("c1", "alice")

	msg := recv(t, alice)
	assert.Equal(t, TypeCanvasUpdated, msg.Type)
	assert.Equal(t, "c1", msg.CanvasID)

	select {
	case data := <-other.send:
		t.Fatalf("unexpected message in other room: %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	hub.CanvasDeleted("c2")
	assert.Equal(t, TypeCanvasDeleted, recv(t, other).Type)
}

func TestHubUnknownMessageType(t *testing.T) {
	hub := startHub(t)
	alice := join(t, hub, "alice", "c1", "a1")

	hub.handleMessage(alice, &Message{Type: "draw.stroke"})

	msg := recv(t, alice)
	assert.Equal(t, TypeError, msg.Type)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &ep))
	assert.Contains(t, ep.Message, "draw.stroke")
}

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	alice := NewClient(hub, nil, "alice", "A", "c1", "a1")
	require.True(t, hub.Register(alice))
	cancel()
	<-done

	assert.False(t, hub.Register(NewClient(hub, nil, "bob", "B", "c1", "b1")))
	assert.Equal(t, 0, hub.Viewers("c1"))

	// Sending to a closed client is a no-op.
	alice.Send(newMessage(TypeWelcome, WelcomePayload{}))
}

func TestPresenceManagerCopies(t *testing.T) {
	pm := NewPresenceManager()
	p := &PresencePayload{Cursor: &CursorPos{X: 1}, Devices: []int{1, 2}}
	pm.Update("alice", p)

	p.Cursor.X = 99
	p.Devices[0] = 42

	got := pm.GetAll()["alice"]
	assert.Equal(t, 1.0, got.Cursor.X)
	assert.Equal(t, []int{1, 2}, got.Devices)

	pm.Remove("alice")
	assert.Empty(t, pm.GetAll())
}

func TestHandlerWebsocket(t *testing.T) {
	hub := startHub(t)

	authorize := func(r *http.Request, canvasID string) (Viewer, error) {
		user := r.URL.Query().Get("user")
		switch {
		case user == "":
			return Viewer{}, ErrUnauthorized
		case canvasID == "private":
			return Viewer{}, errors.New("forbidden")
		}
		return Viewer{UserID: user, DisplayName: user}, nil
	}

	r := mux.NewRouter()
	r.Handle("/ws/canvas/{canvasId}", NewHandler(hub, authorize, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("unauthorized", func(t *testing.T) {
		_, resp, err := websocket.Dial(ctx, wsURL+"/ws/canvas/c1", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("forbidden", func(t *testing.T) {
		_, resp, err := websocket.Dial(ctx, wsURL+"/ws/canvas/private?user=alice", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("welcome and notify", func(t *testing.T) {
		conn, _, err := websocket.Dial(ctx, wsURL+"/ws/canvas/c1?user=alice", nil)
		require.NoError(t, err)

		read := func() Message {
			_, data, err := conn.Read(ctx)
			require.NoError(t, err)
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			return msg
		}

		welcome := read()
		assert.Equal(t, TypeWelcome, welcome.Type)
		var wp WelcomePayload
		require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
		assert.Equal(t, "alice", wp.UserID)
		assert.NotEmpty(t, wp.ClientID)
		assert.Equal(t, TypePresenceState, read().Type)

		hub.CanvasUpdated("c1", "bob")
		updated := read()
		assert.Equal(t, TypeCanvasUpdated, updated.Type)

		// A clean close from the browser removes the viewer.
		require.Equal(t, 1, hub.Viewers("c1"))
		conn.Close(websocket.StatusNormalClosure, "")
		assert.Eventually(t, func() bool { return hub.Viewers("c1") == 0 }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestAnonymousViewer(t *testing.T) {
	v := AnonymousViewer()
	assert.True(t, strings.HasPrefix(v.UserID, "anon-"))
	assert.Len(t, v.UserID, len("anon-")+8)
	assert.Equal(t, "Anonymous", v.DisplayName)
}
