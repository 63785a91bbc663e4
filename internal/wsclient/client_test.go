package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/gorilla/websocket"
)

// fakeServer — push-сервер: записывает входящие кадры и даёт тесту
// писать в соединение.
type fakeServer struct {
	*httptest.Server

	mu     sync.Mutex
	frames []*codec.PushFrame
	query  string
	cookie string
	conns  chan *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{conns: make(chan *websocket.Conn, 1)}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.query = r.URL.RawQuery
		fs.cookie = r.Header.Get("Cookie")
		fs.mu.Unlock()

		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f codec.PushFrame
			if err := f.Unmarshal(data); err != nil {
				continue
			}
			fs.mu.Lock()
			fs.frames = append(fs.frames, &f)
			fs.mu.Unlock()
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) byType(pt string) []*codec.PushFrame {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []*codec.PushFrame
	for _, f := range fs.frames {
		if f.PayloadType == pt {
			out = append(out, f)
		}
	}
	return out
}

func (fs *fakeServer) all() []*codec.PushFrame {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*codec.PushFrame(nil), fs.frames...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func dial(t *testing.T, fs *fakeServer, hb time.Duration) *Client {
	t.Helper()
	c, err := Dial(context.Background(), Config{
		URL:               fs.wsURL(),
		Params:            map[string]string{"room_id": "123", "cursor": "c1"},
		Cookies:           []*http.Cookie{{Name: "sessionid", Value: "s"}},
		HeartbeatInterval: hb,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSwitchRooms_EnterThenHeartbeats(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, 20*time.Millisecond)
	c.Start()
	defer c.Close()

	if err := c.SwitchRooms("123"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "two heartbeats", func() bool { return len(fs.byType(codec.PayloadHeartbeat)) >= 2 })

	all := fs.all()
	if all[0].PayloadType != codec.PayloadEnterRoom {
		t.Fatalf("first frame = %q, want im_enter_room", all[0].PayloadType)
	}
	var enter codec.EnterRoomMessage
	if err := enter.Unmarshal(all[0].Payload); err != nil {
		t.Fatal(err)
	}
	if enter.RoomID != 123 || enter.LiveID != 12 || enter.Identity != "audience" {
		t.Errorf("enter = %+v", enter)
	}

	hbs := fs.byType(codec.PayloadHeartbeat)
	for i, f := range hbs[:2] {
		var hb codec.HeartbeatMessage
		if err := hb.Unmarshal(f.Payload); err != nil {
			t.Fatal(err)
		}
		if hb.RoomID != 123 || hb.SendPacketSeqID != 1 {
			t.Errorf("heartbeat %d = %+v", i, hb)
		}
		if f.SeqID != uint64(i+1) {
			t.Errorf("heartbeat %d seq = %d, want %d", i, f.SeqID, i+1)
		}
	}

	fs.mu.Lock()
	q, ck := fs.query, fs.cookie
	fs.mu.Unlock()
	if !strings.Contains(q, "room_id=123") || !strings.Contains(q, "cursor=c1") {
		t.Errorf("query = %q", q)
	}
	if ck != "sessionid=s" {
		t.Errorf("cookie = %q", ck)
	}
}

func TestAckAndFetchResult(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)

	got := make(chan *codec.FetchResult, 1)
	c.OnFetchResult = func(res *codec.FetchResult) { got <- res }
	c.Start()
	defer c.Close()

	srv := <-fs.conns
	res := &codec.FetchResult{Cursor: "c2", InternalExt: "ext-token", NeedsAck: true}
	frame := codec.NewPushFrame(codec.PayloadMessage, codec.Gzip(res.Marshal()))
	frame.LogID = 555
	if err := srv.WriteMessage(websocket.BinaryMessage, frame.Marshal()); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.Cursor != "c2" {
			t.Errorf("cursor = %q", r.Cursor)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no fetch result")
	}

	waitFor(t, "ack", func() bool { return len(fs.byType(codec.PayloadAck)) == 1 })
	ack := fs.byType(codec.PayloadAck)[0]
	if ack.LogID != 555 || string(ack.Payload) != "ext-token" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestNoAckWithoutLogID(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)
	got := make(chan struct{}, 1)
	c.OnFetchResult = func(*codec.FetchResult) { got <- struct{}{} }
	c.Start()
	defer c.Close()

	srv := <-fs.conns
	res := &codec.FetchResult{Cursor: "c", InternalExt: "x", NeedsAck: true}
	_ = srv.WriteMessage(websocket.BinaryMessage, codec.NewPushFrame(codec.PayloadMessage, res.Marshal()).Marshal())
	<-got
	time.Sleep(50 * time.Millisecond)
	if n := len(fs.byType(codec.PayloadAck)); n != 0 {
		t.Errorf("acks = %d, want 0", n)
	}
}

func TestClose_StopsHeartbeat(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, 10*time.Millisecond)

	var hbs atomic.Int32
	var closes atomic.Int32
	c.OnSent = func(pt string) {
		if pt == codec.PayloadHeartbeat {
			hbs.Add(1)
		}
	}
	c.OnClose = func(code int, _ string) {
		closes.Add(1)
		if code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d", code)
		}
	}
	c.Start()
	if err := c.SwitchRooms("1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "heartbeat", func() bool { return hbs.Load() > 0 })

	c.Close()
	after := hbs.Load()
	time.Sleep(60 * time.Millisecond)
	if hbs.Load() != after {
		t.Errorf("heartbeat sent after Close: %d -> %d", after, hbs.Load())
	}
	if c.Seq() != 1 {
		t.Errorf("seq after close = %d, want 1", c.Seq())
	}

	c.Close()
	time.Sleep(20 * time.Millisecond)
	if closes.Load() != 1 {
		t.Errorf("OnClose called %d times", closes.Load())
	}
	if err := c.SwitchRooms("1"); err != ErrClosed {
		t.Errorf("SwitchRooms after close = %v", err)
	}
}

func TestRemoteClose(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)

	type closeInfo struct {
		code   int
		reason string
	}
	got := make(chan closeInfo, 2)
	c.OnClose = func(code int, reason string) {
		got <- closeInfo{code, reason}
		// повторное закрытие из обработчика не должно виснуть
		c.Close()
	}
	c.Start()

	srv := <-fs.conns
	_ = srv.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(4001, "bye"), time.Now().Add(time.Second))

	select {
	case ci := <-got:
		if ci.code != 4001 || ci.reason != "bye" {
			t.Errorf("close = %+v", ci)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("OnClose not called")
	}
	if !c.Closed() {
		t.Error("client must report closed")
	}
}

func TestSwitchRooms_InvalidID(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, time.Hour)
	defer c.Close()
	if err := c.SwitchRooms("abc"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSwitchRooms_ResetsSeq(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs, 5*time.Millisecond)
	c.Start()
	defer c.Close()

	_ = c.SwitchRooms("1")
	waitFor(t, "seq to grow", func() bool { return c.Seq() > 2 })
	_ = c.SwitchRooms("2")
	if s := c.Seq(); s > 2 {
		t.Errorf("seq after switch = %d", s)
	}
}
