package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultHeartbeatInterval = 10 * time.Second

	writeWait    = 5 * time.Second
	sendQueueLen = 256
	readLimit    = 64 << 20
)

var ErrClosed = errors.New("wsclient: connection closed")

type Config struct {
	URL     string
	Params  map[string]string
	Headers map[string]string
	Cookies []*http.Cookie

	HeartbeatInterval time.Duration // 0: DefaultHeartbeatInterval
	Decoder           *codec.Decoder
	Dialer            *websocket.Dialer
	Logger            zerolog.Logger
}

// Client — одно физическое соединение с webcast push-сервером.
type Client struct {
	conn       *websocket.Conn
	dec        *codec.Decoder
	log        zerolog.Logger
	hbInterval time.Duration

	seq  atomic.Uint64 // начинается с 1, сбрасывается при смене комнаты и закрытии
	send chan []byte
	done chan struct{}

	closing atomic.Bool
	stopped chan struct{} // закрыт, когда таймеры и насос записи остановлены

	hbMu   sync.Mutex
	hbStop chan struct{}
	hbDone chan struct{}

	// "События"; задаются до Start.
	OnData        func(data []byte)
	OnFetchResult func(res *codec.FetchResult)
	OnRoomEntered func(frame *codec.DecodedFrame)
	OnDecodeError func(err error)
	OnError       func(err error)
	OnClose       func(code int, reason string)
	OnSent        func(payloadType string)
}

// BuildURL — адрес с параметрами в стабильном порядке.
func BuildURL(base string, params map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial открывает соединение. ctx ограничивает только установку.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	target, err := BuildURL(cfg.URL, cfg.Params)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	if len(cfg.Cookies) > 0 {
		parts := make([]string, 0, len(cfg.Cookies))
		for _, ck := range cfg.Cookies {
			parts = append(parts, ck.Name+"="+ck.Value)
		}
		h.Set("Cookie", strings.Join(parts, "; "))
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 20 * time.Second,
		}
	}
	conn, resp, err := dialer.DialContext(ctx, target, h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial websocket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	conn.SetReadLimit(readLimit)

	dec := cfg.Decoder
	if dec == nil {
		dec = codec.NewDecoder()
	}
	hb := cfg.HeartbeatInterval
	if hb <= 0 {
		hb = DefaultHeartbeatInterval
	}

	c := &Client{
		conn:       conn,
		dec:        dec,
		log:        cfg.Logger,
		hbInterval: hb,
		send:       make(chan []byte, sendQueueLen),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	c.seq.Store(1)
	return c, nil
}

// Start запускает чтение и насос записи.
func (c *Client) Start() {
	go c.writePump()
	go c.readLoop()
}

// Seq — текущее значение счётчика исходящих пакетов.
func (c *Client) Seq() uint64 { return c.seq.Load() }

// Closed — соединение закрыто (или закрывается).
func (c *Client) Closed() bool { return c.closing.Load() }

// SwitchRooms входит в комнату: сбрасывает счётчик, шлёт im_enter_room
// и перезапускает heartbeat с новым room id.
func (c *Client) SwitchRooms(roomID string) error {
	id, err := strconv.ParseUint(roomID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid room id %q: %w", roomID, err)
	}
	if c.closing.Load() {
		return ErrClosed
	}

	c.hbMu.Lock()
	c.stopHeartbeatLocked()
	c.hbMu.Unlock()
	c.seq.Store(1)

	enter := codec.NewPushFrame(codec.PayloadEnterRoom, codec.NewEnterRoomMessage(id).Marshal())
	if !c.enqueue(enter) {
		return ErrClosed
	}
	c.startHeartbeat(id)
	return nil
}

// Close закрывает соединение. После возврата heartbeat больше не шлётся.
// Можно звать из OnClose и других обработчиков.
func (c *Client) Close() {
	c.shutdown(websocket.CloseNormalClosure, "", true)
}

func (c *Client) shutdown(code int, reason string, local bool) {
	if !c.closing.CompareAndSwap(false, true) {
		<-c.stopped
		return
	}

	c.hbMu.Lock()
	c.stopHeartbeatLocked()
	c.hbMu.Unlock()
	c.seq.Store(1)
	close(c.done)

	if local {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
			time.Now().Add(500*time.Millisecond))
	}
	_ = c.conn.Close()
	close(c.stopped)

	c.log.Debug().Int("code", code).Str("reason", reason).Bool("local", local).Msg("websocket closed")
	if c.OnClose != nil {
		c.OnClose(code, reason)
	}
}

// ========================= запись =========================

// enqueue кладёт кадр в очередь насоса. Не блокирует: при переполнении
// кадр отбрасывается.
func (c *Client) enqueue(f *codec.PushFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f.Marshal():
		if c.OnSent != nil {
			c.OnSent(f.PayloadType)
		}
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn().Str("payload_type", f.PayloadType).Msg("send queue full, frame dropped")
		return false
	}
}

func (c *Client) writePump() {
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				if !c.closing.Load() && c.OnError != nil {
					c.OnError(fmt.Errorf("websocket write: %w", err))
				}
				// чтение упадёт следом и закроет соединение
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) sendAck(logID uint64, internalExt string) {
	if logID == 0 {
		return
	}
	f := codec.NewPushFrame(codec.PayloadAck, []byte(internalExt))
	f.LogID = logID
	c.enqueue(f)
}

// ========================= heartbeat =========================

func (c *Client) startHeartbeat(roomID uint64) {
	c.hbMu.Lock()
	defer c.hbMu.Unlock()
	c.stopHeartbeatLocked()
	if c.closing.Load() {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.hbStop, c.hbDone = stop, done

	go func() {
		defer close(done)
		t := time.NewTicker(c.hbInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.sendHeartbeat(roomID)
			}
		}
	}()
}

// stopHeartbeatLocked ждёт выхода горутины, так что после возврата
// ни одного heartbeat уже не будет.
func (c *Client) stopHeartbeatLocked() {
	if c.hbStop == nil {
		return
	}
	close(c.hbStop)
	<-c.hbDone
	c.hbStop, c.hbDone = nil, nil
}

func (c *Client) sendHeartbeat(roomID uint64) {
	hb := &codec.HeartbeatMessage{RoomID: roomID, SendPacketSeqID: 1}
	f := codec.NewPushFrame(codec.PayloadHeartbeat, hb.Marshal())
	f.SeqID = c.seq.Add(1) - 1
	c.enqueue(f)
}
