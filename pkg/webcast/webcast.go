package webcast

import (
	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/events"
	"github.com/EgorLis/webcast/internal/live"
	"github.com/EgorLis/webcast/internal/metrics"
	"github.com/EgorLis/webcast/internal/resolver"
	"github.com/EgorLis/webcast/internal/signer"
	"github.com/EgorLis/webcast/internal/webclient"
	"github.com/prometheus/client_golang/prometheus"
)

// ========================= подключение =========================

type (
	Connection              = live.Connection
	Options                 = live.Options
	CustomSigner            = live.CustomSigner
	ChatOverrides           = live.ChatOverrides
	SignedWebSocketProvider = live.SignedWebSocketProvider
	State                   = live.State

	WebSocketParams = signer.WebSocketParams
	ChatResponse    = signer.ChatResponse
	RoomSnapshot    = resolver.RoomSnapshot
	GiftInfo        = webclient.Gift
	Metrics         = metrics.Metrics
)

const (
	StateDisconnected = live.StateDisconnected
	StateConnecting   = live.StateConnecting
	StateConnected    = live.StateConnected

	DefaultConnectTimeout = live.DefaultConnectTimeout
	MinWaitInterval       = live.MinWaitInterval
)

// New создаёт подключение к эфиру uniqueID (имя, @имя или ссылка на эфир).
func New(uniqueID string, opts Options) (*Connection, error) {
	return live.New(uniqueID, opts)
}

func DefaultOptions() Options { return live.DefaultOptions() }

// NormalizeUniqueID приводит имя или ссылку к голому имени пользователя.
func NormalizeUniqueID(s string) (string, error) { return live.NormalizeUniqueID(s) }

// NewMetrics регистрирует метрики клиента в reg (nil: DefaultRegisterer).
func NewMetrics(reg prometheus.Registerer) *Metrics { return metrics.New(reg) }

// ========================= ошибки =========================

type (
	AlreadyConnectedError  = live.AlreadyConnectedError
	AlreadyConnectingError = live.AlreadyConnectingError
	InvalidUniqueIDError   = live.InvalidUniqueIDError
	UserOfflineError       = live.UserOfflineError
	InvalidResponseError   = live.InvalidResponseError
	TransportError         = live.TransportError
	SchemaDecodeError      = codec.SchemaDecodeError
	SigningError           = signer.SigningError
	PremiumFeatureError    = signer.PremiumFeatureError
)

var (
	ErrRoomIDRequired      = live.ErrRoomIDRequired
	ErrSessionRequired     = live.ErrSessionRequired
	ErrRegionTokenRequired = live.ErrRegionTokenRequired
)

// ========================= события =========================

type (
	Kind      = events.Kind
	Event     = events.Event
	Handler   = events.Handler
	RoomState = events.RoomState

	ConnectedEvent          = events.Connected
	DisconnectedEvent       = events.Disconnected
	ErrorEvent              = events.Error
	WebsocketConnectedEvent = events.WebsocketConnected
	RoomEnteredEvent        = events.RoomEntered
	DecodedDataEvent        = events.DecodedData
	WebsocketDataEvent      = events.WebsocketData
	MessageEvent            = events.Message
	GiftEvent               = events.Gift
	StreamEndEvent          = events.StreamEnd
)

const (
	KindConnected          = events.KindConnected
	KindDisconnected       = events.KindDisconnected
	KindError              = events.KindError
	KindWebsocketConnected = events.KindWebsocketConnected
	KindRoomEntered        = events.KindRoomEntered
	KindDecodedData        = events.KindDecodedData
	KindWebsocketData      = events.KindWebsocketData
	KindChat               = events.KindChat
	KindGift               = events.KindGift
	KindMember             = events.KindMember
	KindLike               = events.KindLike
	KindSocial             = events.KindSocial
	KindFollow             = events.KindFollow
	KindShare              = events.KindShare
	KindControl            = events.KindControl
	KindStreamEnd          = events.KindStreamEnd
	KindRoomUser           = events.KindRoomUser
	KindQuestion           = events.KindQuestion
	KindLinkMicBattle      = events.KindLinkMicBattle
	KindLinkMicArmies      = events.KindLinkMicArmies
	KindLiveIntro          = events.KindLiveIntro
	KindEmote              = events.KindEmote
	KindEnvelope           = events.KindEnvelope
	KindBarrage            = events.KindBarrage
	KindSuperFan           = events.KindSuperFan
	KindSubscribe          = events.KindSubscribe
	KindRankUpdate         = events.KindRankUpdate
	KindRoomMessage        = events.KindRoomMessage
)

func ParseKind(s string) (Kind, bool) { return events.ParseKind(s) }
func AllKinds() []Kind                { return events.AllKinds() }

// ========================= сообщения =========================

// Тело MessageEvent.Data и GiftEvent.Data.
type (
	Schema         = codec.Schema
	FetchResult    = codec.FetchResult
	DecodedMessage = codec.Message
	PushFrame      = codec.PushFrame
	Common         = codec.Common
	User           = codec.User
	Image          = codec.Image
	Text           = codec.Text

	ChatMessage        = codec.ChatMessage
	GiftMessage        = codec.GiftMessage
	LikeMessage        = codec.LikeMessage
	MemberMessage      = codec.MemberMessage
	SocialMessage      = codec.SocialMessage
	ControlMessage     = codec.ControlMessage
	RoomUserSeqMessage = codec.RoomUserSeqMessage
	QuestionNewMessage = codec.QuestionNewMessage
	LinkMicBattle      = codec.LinkMicBattle
	LinkMicArmies      = codec.LinkMicArmies
	LiveIntroMessage   = codec.LiveIntroMessage
	EmoteChatMessage   = codec.EmoteChatMessage
	EnvelopeMessage    = codec.EnvelopeMessage
	BarrageMessage     = codec.BarrageMessage
	SubNotifyMessage   = codec.SubNotifyMessage
	RankUpdateMessage  = codec.RankUpdateMessage
	RoomMessage        = codec.RoomMessage
)
