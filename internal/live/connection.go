package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/events"
	"github.com/EgorLis/webcast/internal/fallback"
	"github.com/EgorLis/webcast/internal/logging"
	"github.com/EgorLis/webcast/internal/metrics"
	"github.com/EgorLis/webcast/internal/resolver"
	"github.com/EgorLis/webcast/internal/signer"
	"github.com/EgorLis/webcast/internal/webclient"
	"github.com/EgorLis/webcast/internal/wsclient"
	"github.com/rs/zerolog"
)

// DefaultWSParams — параметры вебсокета, которые шлёт веб-клиент платформы.
var DefaultWSParams = map[string]string{
	"aid":                 "1988",
	"app_language":        "en-US",
	"app_name":            "tiktok_web",
	"browser_language":    "en-US",
	"browser_name":        "Mozilla",
	"browser_online":      "true",
	"browser_platform":    "Win32",
	"cookie_enabled":      "true",
	"device_platform":     "web_pc",
	"did_rule":            "3",
	"heartbeatDuration":   "0",
	"host":                "https://webcast.tiktok.com",
	"identity":            "audience",
	"im_path":             "/webcast/im/fetch/",
	"live_id":             "12",
	"sup_ws_ds_opt":       "1",
	"update_version_code": "1.3.0",
	"version_code":        "180800",
	"webcast_sdk_version": "1.3.0",
}

var defaultWSHeaders = map[string]string{
	"User-Agent": webclient.DefaultUserAgent,
	"Origin":     "https://www.tiktok.com",
}

// Connection — подключение к эфиру одного пользователя. Одна комната на
// подключение; после Disconnect можно снова звать Connect.
type Connection struct {
	uniqueID string
	opts     Options
	log      zerolog.Logger
	metrics  *metrics.Metrics

	bus      events.Bus
	web      *webclient.Client
	cloud    *signer.Service
	custom   *signer.Service // nil, если свой сервис не задан
	resolver *resolver.Resolver
	decoder  *codec.Decoder

	mu            sync.Mutex
	state         State
	roomID        string
	cursor        string
	internalExt   string
	snapshot      *resolver.RoomSnapshot
	gifts         []webclient.Gift
	ws            *wsclient.Client
	cancelConnect context.CancelFunc
}

func New(uniqueID string, opts Options) (*Connection, error) {
	id, err := NormalizeUniqueID(uniqueID)
	if err != nil {
		return nil, err
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}

	base := logging.L()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := logging.ForConnection(base, id)

	c := &Connection{
		uniqueID: id,
		opts:     opts,
		log:      log,
		metrics:  opts.Metrics,
	}

	c.cloud = signer.NewCloud(signer.Config{
		BasePath: opts.SignBasePath,
		APIKey:   opts.SignAPIKey,
		Logger:   log,
	})
	gw := &signer.Gateway{Primary: c.cloud, Logger: log}
	rcfg := resolver.Config{
		Cloud:                c.cloud,
		DisableCloudFallback: opts.DisableCloudFallback,
		Logger:               log,
		OnSourceError:        c.sourceFailed,
	}
	if cs := opts.CustomSigner; cs != nil && cs.BasePath != "" {
		c.custom = signer.NewCustom(signer.Config{
			BasePath: cs.BasePath,
			APIKey:   cs.APIKey,
			Headers:  cs.Headers,
			Logger:   log,
		})
		gw.Secondary = c.custom
		rcfg.Custom = c.custom
	}

	c.web = webclient.New(webclient.Config{
		WebHost:     opts.WebHost,
		WebcastHost: opts.WebcastHost,
		Headers:     opts.WebClientHeaders,
		Params:      opts.WebClientParams,
		SessionID:   opts.SessionID,
		RegionToken: opts.RegionToken,
		Signer:      gw,
		SignWebcast: opts.SignWebcastRequests,
		Logger:      log,
	})
	rcfg.Web = c.web
	c.resolver = resolver.New(rcfg)

	c.decoder = codec.NewDecoder(opts.SkipTypes...)
	c.decoder.ShowBase64 = opts.ShowBase64
	c.decoder.Logger = log

	return c, nil
}

// ========================= состояние =========================

func (c *Connection) UniqueID() string { return c.uniqueID }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// RoomInfo — последний снимок комнаты (nil, если не запрашивался).
func (c *Connection) RoomInfo() *resolver.RoomSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Connection) AvailableGifts() []webclient.Gift {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]webclient.Gift(nil), c.gifts...)
}

func (c *Connection) RoomState() events.RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomStateLocked()
}

func (c *Connection) roomStateLocked() events.RoomState {
	return events.RoomState{
		UniqueID: c.uniqueID,
		RoomID:   c.roomID,
		Snapshot: c.snapshot,
		Gifts:    append([]webclient.Gift(nil), c.gifts...),
	}
}

// resetLocked — состояние "отключено": параметры сессии и снимок комнаты
// сбрасываются, каталог подарков остаётся.
func (c *Connection) resetLocked() {
	c.state = StateDisconnected
	c.roomID = ""
	c.cursor = ""
	c.internalExt = ""
	c.snapshot = nil
}

// ========================= события =========================

// Subscribe подписывает fn на события (без kinds — на все). Обработчики
// вызываются на горутине чтения транспорта, по порядку кадров.
func (c *Connection) Subscribe(fn events.Handler, kinds ...events.Kind) (cancel func()) {
	return c.bus.Subscribe(fn, kinds...)
}

func (c *Connection) emit(e events.Event) {
	c.metrics.Event(e.Kind().String())
	c.bus.Emit(e)
}

// handleError шлёт Error, только если его кто-то слушает.
func (c *Connection) handleError(err error, info string) {
	if !c.bus.Listening(events.KindError) {
		return
	}
	c.emit(events.Error{Info: info, Err: err})
}

func (c *Connection) sourceFailed(source string, err error) {
	c.metrics.SourceFailure(source)
	c.handleError(err, "room source "+source+" failed, trying next")
}

// ========================= подключение =========================

// Connect подключается к эфиру. roomID (необязательный) отменяет поиск
// комнаты. Повторов нет: при ошибке состояние возвращается в
// StateDisconnected, а ошибка отдаётся как есть.
func (c *Connection) Connect(ctx context.Context, roomID string) (events.RoomState, error) {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return events.RoomState{}, &AlreadyConnectedError{}
	case StateConnecting:
		c.mu.Unlock()
		return events.RoomState{}, &AlreadyConnectingError{}
	}
	c.state = StateConnecting
	ctx, cancel := context.WithCancel(ctx)
	c.cancelConnect = cancel
	c.mu.Unlock()
	defer cancel()

	st, err := c.connect(ctx, roomID)
	if err != nil {
		c.abortConnect()
		c.metrics.ConnectAttempt("error")
		c.log.Warn().Err(err).Msg("connect failed")
		c.handleError(err, "Error while connecting")
		return events.RoomState{}, err
	}
	return st, nil
}

func (c *Connection) connect(ctx context.Context, override string) (events.RoomState, error) {
	opts := c.opts

	// room id нужен всегда, кроме подключения по имени без доп. запросов
	if !opts.ConnectWithUniqueID || opts.FetchRoomInfoOnConnect || opts.EnableExtendedGiftInfo {
		id := override
		if id == "" {
			id = c.RoomID()
		}
		if id == "" {
			var err error
			if id, err = c.resolver.RoomID(ctx, c.uniqueID); err != nil {
				return events.RoomState{}, err
			}
		}
		c.setRoomID(id)
	}

	if opts.FetchRoomInfoOnConnect {
		snap, err := c.FetchRoomInfo(ctx)
		if err != nil {
			return events.RoomState{}, err
		}
		if snap.Offline() {
			return events.RoomState{}, &UserOfflineError{UniqueID: c.uniqueID, RoomID: snap.RoomID}
		}
	}

	if opts.EnableExtendedGiftInfo {
		if _, err := c.FetchAvailableGifts(ctx); err != nil {
			return events.RoomState{}, err
		}
	}

	params := signer.WebSocketParams{UseMobile: opts.UseMobile}
	if override != "" || !opts.ConnectWithUniqueID {
		params.RoomID = c.RoomID()
	}
	if opts.ConnectWithUniqueID {
		params.UniqueID = c.uniqueID
	}
	if opts.AuthenticateWS {
		params.SessionID = opts.SessionID
		params.RegionToken = opts.RegionToken
	}

	res, err := c.signedWebSocket(ctx, params)
	if err != nil {
		return events.RoomState{}, err
	}

	if opts.ProcessInitialData {
		c.processFetchResult(res)
	}

	if res.Cursor == "" {
		return events.RoomState{}, &InvalidResponseError{Msg: "missing cursor in initial fetch response"}
	}
	if res.WSURL == "" {
		return events.RoomState{}, &InvalidResponseError{Msg: "missing websocket url in initial fetch response"}
	}

	c.mu.Lock()
	c.cursor = res.Cursor
	c.internalExt = res.InternalExt
	if c.roomID == "" {
		// подключение по имени: комнату сообщает сам ответ
		c.roomID = res.WSParams["room_id"]
	}
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == "" {
		return events.RoomState{}, &InvalidResponseError{Msg: "room id unknown after signed websocket fetch"}
	}

	wsParams := map[string]string{
		"compress":     "gzip",
		"room_id":      roomID,
		"internal_ext": res.InternalExt,
		"cursor":       res.Cursor,
	}
	for k, v := range res.WSParams {
		if v != "" {
			wsParams[k] = v
		}
	}

	ws, err := c.dial(ctx, res.WSURL, merge(DefaultWSParams, opts.WSClientParams, wsParams))
	if err != nil {
		return events.RoomState{}, &TransportError{URL: res.WSURL, Err: err}
	}

	c.mu.Lock()
	if err := ctx.Err(); err != nil {
		// Disconnect успел отработать, пока шёл dial
		c.mu.Unlock()
		ws.Close()
		return events.RoomState{}, &TransportError{URL: res.WSURL, Err: err}
	}
	c.bind(ws)
	c.ws = ws
	c.mu.Unlock()

	ws.Start()
	// как и веб-клиент: сразу после открытия входим в комнату
	if err := ws.SwitchRooms(roomID); err != nil {
		return events.RoomState{}, &TransportError{URL: res.WSURL, Err: err}
	}
	c.emit(events.WebsocketConnected{URL: res.WSURL})

	c.mu.Lock()
	if c.ws != ws || ctx.Err() != nil {
		// закрыли, пока подключались (сервер или Disconnect из обработчика)
		c.mu.Unlock()
		return events.RoomState{}, &TransportError{URL: res.WSURL, Err: wsclient.ErrClosed}
	}
	c.state = StateConnected
	c.cancelConnect = nil
	st := c.roomStateLocked()
	c.mu.Unlock()

	c.metrics.SetConnected(true)
	c.metrics.ConnectAttempt("ok")
	c.log.Info().Str(logging.FieldRoomID, roomID).Msg("connected")
	c.emit(events.Connected{State: st})
	return st, nil
}

func (c *Connection) dial(ctx context.Context, url string, params map[string]string) (*wsclient.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	return wsclient.Dial(ctx, wsclient.Config{
		URL:               url,
		Params:            params,
		Headers:           merge(defaultWSHeaders, c.opts.WSClientHeaders),
		Cookies:           c.web.Cookies(),
		HeartbeatInterval: c.opts.HeartbeatInterval,
		Decoder:           c.decoder,
		Logger:            c.log,
	})
}

// bind вешает обработчики транспорта. Всё, кроме OnClose, идёт с
// горутины чтения.
func (c *Connection) bind(ws *wsclient.Client) {
	ws.OnData = func(data []byte) {
		c.metrics.FrameReceived()
		c.emit(events.WebsocketData{Data: data})
	}
	ws.OnFetchResult = c.processFetchResult
	ws.OnRoomEntered = func(frame *codec.DecodedFrame) {
		c.emit(events.RoomEntered{Frame: frame})
	}
	ws.OnDecodeError = func(err error) {
		c.metrics.DecodeError()
		c.handleError(err, "Websocket message decoding failed")
	}
	ws.OnError = func(err error) {
		c.handleError(err, "Websocket error")
	}
	ws.OnSent = c.metrics.FrameSent
	ws.OnClose = func(code int, reason string) {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
			// во время подключения состоянием владеет Connect
			if c.state == StateConnected {
				c.resetLocked()
			}
		}
		c.mu.Unlock()

		c.metrics.SetConnected(false)
		c.log.Info().Int("code", code).Str("reason", reason).Msg("disconnected")
		c.emit(events.Disconnected{Code: code, Reason: reason})
	}
}

// abortConnect сносит то, что успел построить неудачный Connect.
func (c *Connection) abortConnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.cancelConnect = nil
	c.resetLocked()
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
}

// Disconnect закрывает подключение. Можно звать в любом состоянии,
// повторно и из обработчиков событий. Прерывает идущий Connect.
// После закрытия снимает всех подписчиков.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	// отмена под mu: Connect проверяет ctx, когда сохраняет транспорт
	if c.cancelConnect != nil {
		c.cancelConnect()
	}
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
	c.bus.Reset()
}

func (c *Connection) setRoomID(id string) {
	c.mu.Lock()
	c.roomID = id
	c.mu.Unlock()
}

// signedWebSocket — начальный FetchResult: от провайдера вызывающего или
// из облачного сервиса с откатом на свой.
func (c *Connection) signedWebSocket(ctx context.Context, p signer.WebSocketParams) (*codec.FetchResult, error) {
	if provide := c.opts.SignedWebSocketProvider; provide != nil {
		res, err := provide(ctx, p)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, &InvalidResponseError{Msg: "signed websocket provider returned nothing"}
		}
		return res, nil
	}

	fetch := func(svc *signer.Service) func(context.Context) (*codec.FetchResult, error) {
		return func(ctx context.Context) (*codec.FetchResult, error) {
			raw, err := svc.FetchSignedWebSocket(ctx, p)
			if err != nil {
				return nil, err
			}
			res, err := c.decoder.DecodeFetchResult(raw)
			if err != nil {
				return nil, &InvalidResponseError{Msg: "decode signed websocket response", Err: err}
			}
			return res, nil
		}
	}
	steps := []fallback.Step[*codec.FetchResult]{
		{Name: resolver.SourceCloud, Enabled: true, Run: fetch(c.cloud)},
		{Name: resolver.SourceCustom, Enabled: c.custom.Configured(), Run: fetch(c.custom)},
	}
	return fallback.Attempt(ctx, "fetch signed websocket", steps, func(step string, err error) {
		c.handleError(err, "Signed websocket from "+step+" failed")
	})
}

// ========================= запросы =========================

// FetchRoomID находит комнату пользователя и запоминает её.
func (c *Connection) FetchRoomID(ctx context.Context) (string, error) {
	id, err := c.resolver.RoomID(ctx, c.uniqueID)
	if err != nil {
		return "", err
	}
	c.setRoomID(id)
	return id, nil
}

// FetchRoomInfo — свежий снимок комнаты: сначала webcast room/info по
// room id, затем источники резолвера по имени.
func (c *Connection) FetchRoomInfo(ctx context.Context) (*resolver.RoomSnapshot, error) {
	roomID := c.RoomID()
	if roomID == "" {
		var err error
		if roomID, err = c.FetchRoomID(ctx); err != nil {
			return nil, err
		}
	}

	steps := []fallback.Step[*resolver.RoomSnapshot]{
		{Name: "webcast", Enabled: true, Run: func(ctx context.Context) (*resolver.RoomSnapshot, error) {
			raw, err := c.web.RoomInfo(ctx, webclient.Params{RoomID: roomID})
			if err != nil {
				return nil, err
			}
			return resolver.ParseRoomInfo(raw)
		}},
		{Name: "resolver", Enabled: true, Run: func(ctx context.Context) (*resolver.RoomSnapshot, error) {
			return c.resolver.RoomInfo(ctx, c.uniqueID)
		}},
	}
	snap, err := fallback.Attempt(ctx, "fetch room info", steps, func(step string, err error) {
		c.handleError(err, "Room info from "+step+" failed")
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	return snap, nil
}

func (c *Connection) FetchIsLive(ctx context.Context) (bool, error) {
	return c.resolver.IsLive(ctx, c.uniqueID)
}

// FetchAvailableGifts — каталог подарков комнаты. Любая ошибка —
// *InvalidResponseError.
func (c *Connection) FetchAvailableGifts(ctx context.Context) ([]webclient.Gift, error) {
	c.mu.Lock()
	p := webclient.Params{RoomID: c.roomID, Cursor: c.cursor, InternalExt: c.internalExt}
	c.mu.Unlock()

	gifts, err := c.web.GiftList(ctx, p)
	if err != nil {
		return nil, &InvalidResponseError{Msg: "failed to fetch available gifts", Err: err}
	}
	c.mu.Lock()
	c.gifts = gifts
	c.mu.Unlock()
	return append([]webclient.Gift(nil), gifts...), nil
}

// WaitUntilLive опрашивает FetchIsLive (не чаще MinWaitInterval), пока эфир
// не начнётся или не отменят ctx. Ошибки опроса не прерывают ожидание.
func (c *Connection) WaitUntilLive(ctx context.Context, interval time.Duration) error {
	if interval < MinWaitInterval {
		interval = MinWaitInterval
	}

	check := func() bool {
		live, err := c.FetchIsLive(ctx)
		if err != nil {
			c.log.Debug().Err(err).Msg("live status check failed")
			return false
		}
		return live
	}

	if check() {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if check() {
				return nil
			}
		}
	}
}

// ChatOverrides — поля, которые можно подменить при отправке сообщения.
type ChatOverrides struct {
	RoomID      string
	SessionID   string
	RegionToken string
}

// SendMessage пишет в чат комнаты через облачный сервис, при его ошибке —
// через свой (если задан). Нужны room id, session id и region token.
func (c *Connection) SendMessage(ctx context.Context, content string, o ChatOverrides) (*signer.ChatResponse, error) {
	payload := signer.ChatPayload{
		RoomID:      firstNonEmpty(o.RoomID, c.RoomID()),
		Content:     content,
		SessionID:   firstNonEmpty(o.SessionID, c.web.SessionID()),
		RegionToken: firstNonEmpty(o.RegionToken, c.web.RegionToken()),
	}
	switch {
	case payload.RoomID == "":
		return nil, ErrRoomIDRequired
	case payload.SessionID == "":
		return nil, ErrSessionRequired
	case payload.RegionToken == "":
		return nil, ErrRegionTokenRequired
	}

	resp, err := c.cloud.SendRoomChat(ctx, payload)
	if err == nil || !c.custom.Configured() {
		return resp, err
	}
	c.log.Debug().Err(err).Msg("cloud chat failed, trying custom signer")
	resp, cerr := c.custom.SendRoomChat(ctx, payload)
	if cerr != nil {
		return nil, fmt.Errorf("send message: %w", errors.Join(err, cerr))
	}
	return resp, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func merge(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
