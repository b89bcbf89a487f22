package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aakashbhandari1000/Meeting/internal/adapters/store"
	"github.com/aakashbhandari1000/Meeting/internal/app"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
	"github.com/aakashbhandari1000/Meeting/internal/protocol"
)

type testServer struct {
	coord *app.Coordinator
	srv   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coord := app.NewCoordinator(app.NewSessionIndex(), store.NewMemory(), store.NewRealtime(), app.SimplePolicy{})
	ctl := NewController(coord, 32768, 32)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(context.Background(), c) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{coord: coord, srv: srv}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEnv(t *testing.T, conn *websocket.Conn, env protocol.Envelope) {
	t.Helper()
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEnv(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

// joinAs dials, joins and consumes the roster snapshot.
func (ts *testServer) joinAs(t *testing.T, meeting domain.MeetingID, user domain.UserID) *websocket.Conn {
	t.Helper()
	conn := ts.dial(t)
	sendEnv(t, conn, protocol.Envelope{Kind: protocol.KindJoinMeeting, MeetingID: meeting, UserID: user})
	snapshot := readEnv(t, conn)
	if snapshot.Kind != protocol.KindParticipantJoined || snapshot.Participants == nil {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	return conn
}

func TestJoinUnknownMeetingOverWire(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sendEnv(t, conn, protocol.Envelope{Kind: protocol.KindJoinMeeting, MeetingID: "nope", UserID: "alice"})

	reply := readEnv(t, conn)
	if reply.Kind != protocol.KindError || reply.Error != "meeting_not_found" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestMalformedPayloadGetsErrorReply(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"offer"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := readEnv(t, conn)
	if reply.Kind != protocol.KindError || reply.Error != "bad_payload" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestPingPong(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	sendEnv(t, conn, protocol.Envelope{Kind: protocol.KindPing})
	if reply := readEnv(t, conn); reply.Kind != protocol.KindPong {
		t.Fatalf("reply kind = %q, want pong", reply.Kind)
	}
}

func TestMeetingOverWire(t *testing.T) {
	ts := newTestServer(t)
	id, err := ts.coord.CreateMeeting(context.Background(), "host", domain.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	hostConn := ts.joinAs(t, id, "host")
	aliceConn := ts.joinAs(t, id, "alice")

	// The host hears about alice.
	notice := readEnv(t, hostConn)
	if notice.Kind != protocol.KindParticipantJoined || notice.UserID != "alice" {
		t.Fatalf("notice = %+v", notice)
	}

	// host -> alice offer relays point-to-point with the sender stamped.
	sdp := protocol.SDP{Type: "offer", SDP: "v=0\r\n"}
	sendEnv(t, hostConn, protocol.Envelope{Kind: protocol.KindOffer, TargetUserID: "alice", SDP: &sdp})
	offer := readEnv(t, aliceConn)
	if offer.Kind != protocol.KindOffer || offer.UserID != "host" || offer.SDP == nil {
		t.Fatalf("offer = %+v", offer)
	}

	// Chat reaches both members.
	sendEnv(t, aliceConn, protocol.Envelope{Kind: protocol.KindChatMessage, Message: "hello"})
	for _, conn := range []*websocket.Conn{hostConn, aliceConn} {
		msg := readEnv(t, conn)
		if msg.Kind != protocol.KindChatMessage || msg.Message != "hello" || msg.UserID != "alice" {
			t.Fatalf("chat = %+v", msg)
		}
	}

	// Host ends the meeting; both sides hear it.
	sendEnv(t, hostConn, protocol.Envelope{Kind: protocol.KindEndMeeting, MeetingID: id})
	for _, conn := range []*websocket.Conn{hostConn, aliceConn} {
		if env := readEnv(t, conn); env.Kind != protocol.KindMeetingEnded {
			t.Fatalf("kind = %q, want meeting-ended", env.Kind)
		}
	}
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	ts := newTestServer(t)
	id, err := ts.coord.CreateMeeting(context.Background(), "host", domain.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	hostConn := ts.joinAs(t, id, "host")
	aliceConn := ts.joinAs(t, id, "alice")
	if notice := readEnv(t, hostConn); notice.UserID != "alice" {
		t.Fatalf("notice = %+v", notice)
	}

	_ = aliceConn.Close()

	left := readEnv(t, hostConn)
	if left.Kind != protocol.KindParticipantLeft || left.UserID != "alice" {
		t.Fatalf("departure notice = %+v", left)
	}
}
