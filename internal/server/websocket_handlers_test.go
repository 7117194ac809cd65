package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"worldnews/internal/models"
	"worldnews/internal/notifications"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the app on a loopback port for real websocket clients.
func (e *testEnv) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return ln.Addr().String()
}

func dialWS(t *testing.T, host, rawQuery string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws", RawQuery: rawQuery}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readEvent(t *testing.T, conn *websocket.Conn) notifications.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev notifications.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestWebsocket_AnonymousViewerReceivesBroadcasts(t *testing.T) {
	env := newTestEnv(t, false)
	author := env.seedUser(t, "author", false)
	admin := env.seedUser(t, "kevin", true)
	host := env.listen(t)

	conn, _, err := dialWS(t, host, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.server.hub.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodPost, "/api/posts", env.tokenFor(t, author.ID), map[string]string{
		"title":    "Harvest festival",
		"content":  "Lanterns everywhere.",
		"country":  "JP",
		"category": "culture",
		"image":    "https://images.example/lanterns.jpg",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ev := readEvent(t, conn)
	assert.Equal(t, notifications.EventPostCreated, ev.Type)

	resp = env.do(t, http.MethodPatch, "/api/theme", env.tokenFor(t, admin.ID), map[string]string{"font_size": "small"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev = readEvent(t, conn)
	assert.Equal(t, notifications.EventThemeUpdated, ev.Type)
	payload := ev.Payload.(map[string]any)
	assert.Equal(t, "14px", payload["presentation"].(map[string]any)["root_font_size"])
}

func TestWebsocket_ReactionEventsOmitViewerState(t *testing.T) {
	env := newTestEnv(t, false)
	author := env.seedUser(t, "author", false)
	reader := env.seedUser(t, "reader", false)
	post := env.seedPost(t, author, "IN", models.CategorySports, "cricket")
	host := env.listen(t)

	conn, _, err := dialWS(t, host, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.server.hub.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), env.tokenFor(t, reader.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := readEvent(t, conn)
	assert.Equal(t, notifications.EventPostReactionUpdated, ev.Type)
	payload := ev.Payload.(map[string]any)
	assert.EqualValues(t, post.ID, payload["post_id"])
	assert.EqualValues(t, 1, payload["likes"])
	assert.NotContains(t, payload, "liked")
}

func TestWebsocket_TicketAuthentication(t *testing.T) {
	env := newTestEnv(t, true)
	user := env.seedUser(t, "listener", false)
	host := env.listen(t)

	_, resp, err := dialWS(t, host, "ticket=does-not-exist")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialWS(t, host, "token="+env.tokenFor(t, user.ID))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "tokens are not accepted in the URL")

	ticketResp := env.do(t, http.MethodPost, "/api/ws/ticket", env.tokenFor(t, user.ID), nil)
	require.Equal(t, http.StatusOK, ticketResp.StatusCode)
	ticket := decode[map[string]any](t, ticketResp)["ticket"].(string)

	_, _, err = dialWS(t, host, "ticket="+ticket)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.server.hub.ConnectionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	_, resp, err = dialWS(t, host, "ticket="+ticket)
	require.Error(t, err, "a ticket cannot be replayed")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocket_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
