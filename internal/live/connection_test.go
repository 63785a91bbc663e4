package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/events"
	"github.com/EgorLis/webcast/internal/signer"
	"github.com/EgorLis/webcast/internal/webclient"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newConn(t *testing.T, opts Options) *Connection {
	t.Helper()
	nop := zerolog.Nop()
	opts.Logger = &nop
	c, err := New("@alice", opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// recorder собирает имена событий в порядке прихода.
type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) handle(e events.Event) {
	r.mu.Lock()
	r.kinds = append(r.kinds, e.Kind().String())
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kinds...)
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

func TestConnect_RejectsWhileBusy(t *testing.T) {
	c := newConn(t, DefaultOptions())

	c.state = StateConnecting
	_, err := c.Connect(context.Background(), "1")
	var connecting *AlreadyConnectingError
	if !errors.As(err, &connecting) {
		t.Fatalf("err = %v, want AlreadyConnectingError", err)
	}

	c.state = StateConnected
	_, err = c.Connect(context.Background(), "1")
	var connected *AlreadyConnectedError
	if !errors.As(err, &connected) {
		t.Fatalf("err = %v, want AlreadyConnectedError", err)
	}
	if c.State() != StateConnected {
		t.Error("rejected connect changed state")
	}
}

func TestConnect_MissingCursor(t *testing.T) {
	var got signer.WebSocketParams
	opts := Options{
		ConnectWithUniqueID: true,
		ProcessInitialData:  true,
		SignedWebSocketProvider: func(_ context.Context, p signer.WebSocketParams) (*codec.FetchResult, error) {
			got = p
			return &codec.FetchResult{
				WSURL: "ws://127.0.0.1:1/never-dialed",
				Messages: []*codec.Message{
					{Type: codec.TypeChat, Decoded: &codec.ChatMessage{Content: "early"}},
				},
			}, nil
		},
	}
	c := newConn(t, opts)
	var rec recorder
	c.Subscribe(rec.handle, events.KindChat, events.KindError, events.KindWebsocketConnected)

	_, err := c.Connect(context.Background(), "")
	var ir *InvalidResponseError
	if !errors.As(err, &ir) {
		t.Fatalf("err = %v, want InvalidResponseError", err)
	}
	if got.UniqueID != "alice" || got.RoomID != "" {
		t.Errorf("provider params = %+v", got)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v", c.State())
	}
	want := []string{"chat", "error"}
	if k := rec.snapshot(); strings.Join(k, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", k, want)
	}
}

func TestConnect_UserOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/webcast/room/info/") || r.URL.Query().Get("room_id") != "7001" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id_str":"7001","status":4,"title":"bye"}}`))
	}))
	defer srv.Close()

	called := false
	opts := DefaultOptions()
	opts.WebcastHost = strings.TrimPrefix(srv.URL, "http://")
	opts.SignedWebSocketProvider = func(context.Context, signer.WebSocketParams) (*codec.FetchResult, error) {
		called = true
		return nil, errors.New("must not be called")
	}
	c := newConn(t, opts)

	_, err := c.Connect(context.Background(), "7001")
	var off *UserOfflineError
	if !errors.As(err, &off) {
		t.Fatalf("err = %v, want UserOfflineError", err)
	}
	if called {
		t.Error("transport work started for offline room")
	}
	if c.State() != StateDisconnected || c.RoomID() != "" {
		t.Errorf("state = %v, room = %q", c.State(), c.RoomID())
	}
}

func TestConnect_TransportFailure(t *testing.T) {
	opts := Options{
		ConnectTimeout: time.Second,
		SignedWebSocketProvider: func(context.Context, signer.WebSocketParams) (*codec.FetchResult, error) {
			return &codec.FetchResult{Cursor: "c1", WSURL: "ws://127.0.0.1:1/ws"}, nil
		},
	}
	c := newConn(t, opts)

	_, err := c.Connect(context.Background(), "7001")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v", c.State())
	}
}

// pushServer — минимальный push-сервер: отдаёт соединение тесту и
// запоминает типы входящих кадров.
type pushServer struct {
	*httptest.Server
	conns chan *websocket.Conn

	mu     sync.Mutex
	query  string
	frames []string
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{conns: make(chan *websocket.Conn, 1)}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.query = r.URL.RawQuery
		ps.mu.Unlock()
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f codec.PushFrame
			if f.Unmarshal(data) == nil {
				ps.mu.Lock()
				ps.frames = append(ps.frames, f.PayloadType)
				ps.mu.Unlock()
			}
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushServer) received(pt string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, f := range ps.frames {
		if f == pt {
			return true
		}
	}
	return false
}

func TestConnect_DispatchAndStreamEnd(t *testing.T) {
	ps := newPushServer(t)
	opts := Options{
		HeartbeatInterval: time.Hour,
		SignedWebSocketProvider: func(context.Context, signer.WebSocketParams) (*codec.FetchResult, error) {
			return &codec.FetchResult{
				Cursor:      "c1",
				InternalExt: "ext",
				WSURL:       "ws" + strings.TrimPrefix(ps.URL, "http"),
				WSParams:    map[string]string{"wrss": "token", "empty": ""},
			}, nil
		},
	}
	c := newConn(t, opts)

	var rec recorder
	c.Subscribe(rec.handle,
		events.KindConnected, events.KindChat, events.KindSocial, events.KindFollow,
		events.KindControl, events.KindStreamEnd, events.KindDisconnected)

	st, err := c.Connect(context.Background(), "7001")
	if err != nil {
		t.Fatal(err)
	}
	if st.RoomID != "7001" || c.State() != StateConnected {
		t.Fatalf("state = %+v, %v", st, c.State())
	}

	srv := <-ps.conns
	waitFor(t, "im_enter_room", func() bool { return ps.received(codec.PayloadEnterRoom) })

	ps.mu.Lock()
	q := ps.query
	ps.mu.Unlock()
	for _, want := range []string{"room_id=7001", "cursor=c1", "internal_ext=ext", "compress=gzip", "wrss=token"} {
		if !strings.Contains(q, want) {
			t.Errorf("ws query %q lacks %s", q, want)
		}
	}
	if strings.Contains(q, "empty=") {
		t.Errorf("empty ws param forwarded: %q", q)
	}

	follow := &codec.SocialMessage{Common: &codec.Common{
		DisplayText: &codec.Text{DisplayType: "pm_mt_msg_viewer_follow"},
	}}
	batch := &codec.FetchResult{
		Cursor: "c2",
		Messages: []*codec.Message{
			{Type: codec.TypeChat, Payload: (&codec.ChatMessage{Content: "hi"}).Marshal()},
			{Type: codec.TypeSocial, Payload: follow.Marshal()},
			{Type: codec.TypeControl, Payload: (&codec.ControlMessage{Action: codec.ControlActionStreamEnded}).Marshal()},
		},
	}
	frame := codec.NewPushFrame(codec.PayloadMessage, codec.Gzip(batch.Marshal()))
	if err := srv.WriteMessage(websocket.BinaryMessage, frame.Marshal()); err != nil {
		t.Fatal(err)
	}

	want := "connected,chat,social,follow,control,stream_end,disconnected"
	waitFor(t, "stream end", func() bool { return strings.Join(rec.snapshot(), ",") == want })

	if c.State() != StateDisconnected {
		t.Errorf("state after stream end = %v", c.State())
	}
	if c.bus.Len() != 0 {
		t.Errorf("listeners left after disconnect: %d", c.bus.Len())
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	c := newConn(t, DefaultOptions())
	c.Subscribe(func(events.Event) {})
	c.Disconnect()
	c.Disconnect()
	if c.State() != StateDisconnected || c.bus.Len() != 0 {
		t.Errorf("state = %v, listeners = %d", c.State(), c.bus.Len())
	}
}

func TestDispatch_GiftAndBarrage(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableExtendedGiftInfo = true
	c := newConn(t, opts)
	c.gifts = []webclient.Gift{{ID: 5655, Name: "Rose", DiamondCount: 1}}

	var gifts []events.Gift
	var rec recorder
	c.Subscribe(func(e events.Event) { gifts = append(gifts, e.(events.Gift)) }, events.KindGift)
	c.Subscribe(rec.handle, events.KindDecodedData, events.KindSuperFan, events.KindBarrage)

	c.processFetchResult(&codec.FetchResult{Messages: []*codec.Message{
		{Type: codec.TypeGift, Decoded: &codec.GiftMessage{GiftID: 5655}},
		{Type: codec.TypeGift, Decoded: &codec.GiftMessage{GiftID: 1}},
		{Type: codec.TypeBarrage, Decoded: &codec.BarrageMessage{Content: &codec.Text{DisplayType: "ttlive_superFan_join"}}},
		{Type: "WebcastUnknownMessage", Payload: []byte{1}},
	}})

	if len(gifts) != 2 {
		t.Fatalf("gifts = %d", len(gifts))
	}
	if gifts[0].Extended == nil || gifts[0].Extended.Name != "Rose" {
		t.Errorf("gift not enriched: %+v", gifts[0].Extended)
	}
	if gifts[1].Extended != nil {
		t.Errorf("unknown gift enriched: %+v", gifts[1].Extended)
	}

	want := "decoded_data,decoded_data,decoded_data,super_fan,barrage"
	if got := strings.Join(rec.snapshot(), ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestDispatch_HandlerPanicIsReported(t *testing.T) {
	c := newConn(t, DefaultOptions())
	var infos []string
	c.Subscribe(func(e events.Event) { infos = append(infos, e.(events.Error).Info) }, events.KindError)
	c.Subscribe(func(events.Event) { panic("boom") }, events.KindChat)

	c.processFetchResult(&codec.FetchResult{Messages: []*codec.Message{
		{Type: codec.TypeChat, Decoded: &codec.ChatMessage{}},
		{Type: codec.TypeLike, DecodeErr: errors.New("bad bytes")},
	}})

	if len(infos) != 2 || infos[0] != "Failed to process decoded data" {
		t.Errorf("errors = %v", infos)
	}
}

func TestSendMessage_RequiresIdentity(t *testing.T) {
	c := newConn(t, DefaultOptions())
	if _, err := c.SendMessage(context.Background(), "hi", ChatOverrides{}); !errors.Is(err, ErrRoomIDRequired) {
		t.Errorf("err = %v", err)
	}
	if _, err := c.SendMessage(context.Background(), "hi", ChatOverrides{RoomID: "1"}); !errors.Is(err, ErrSessionRequired) {
		t.Errorf("err = %v", err)
	}
	_, err := c.SendMessage(context.Background(), "hi", ChatOverrides{RoomID: "1", SessionID: "s"})
	if !errors.Is(err, ErrRegionTokenRequired) {
		t.Errorf("err = %v", err)
	}
}

func TestWaitUntilLive_Cancelled(t *testing.T) {
	c := newConn(t, Options{DisableCloudFallback: true, WebHost: "127.0.0.1:1"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.WaitUntilLive(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestConnect_DisconnectDuringDial(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	opts := Options{
		HeartbeatInterval: time.Hour,
		ConnectTimeout:    5 * time.Second,
		SignedWebSocketProvider: func(context.Context, signer.WebSocketParams) (*codec.FetchResult, error) {
			return &codec.FetchResult{Cursor: "c1", WSURL: "ws" + strings.TrimPrefix(srv.URL, "http")}, nil
		},
	}
	c := newConn(t, opts)

	done := make(chan error, 1)
	go func() {
		_, err := c.Connect(context.Background(), "7001")
		done <- err
	}()

	<-entered
	c.Disconnect()
	close(release)

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not return after disconnect")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v", c.State())
	}
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws != nil {
		t.Error("transport kept after disconnect")
	}
}

func TestDefaultOptions_DecoderKeepsRawBytes(t *testing.T) {
	c := newConn(t, DefaultOptions())
	if !c.decoder.ShowBase64 {
		t.Error("default decoder must attach raw bytes to decode errors")
	}
	opts := DefaultOptions()
	opts.ShowBase64 = false
	opts.SkipTypes = []string{codec.TypeLike}
	c = newConn(t, opts)
	if c.decoder.ShowBase64 {
		t.Error("ShowBase64=false ignored")
	}
	if _, ok := c.decoder.SkipTypes[codec.TypeLike]; !ok {
		t.Error("skip types not passed to the decoder")
	}
}
