package events

import (
	"strings"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/resolver"
	"github.com/EgorLis/webcast/internal/webclient"
)

// Kind: закрытый набор событий клиента.
type Kind int

const (
	KindConnected Kind = iota + 1
	KindDisconnected
	KindError
	KindWebsocketConnected
	KindRoomEntered
	KindDecodedData
	KindWebsocketData

	KindChat
	KindGift
	KindMember
	KindLike
	KindSocial
	KindFollow
	KindShare
	KindControl
	KindStreamEnd
	KindRoomUser
	KindQuestion
	KindLinkMicBattle
	KindLinkMicArmies
	KindLiveIntro
	KindEmote
	KindEnvelope
	KindBarrage
	KindSuperFan
	KindSubscribe
	KindRankUpdate
	KindRoomMessage

	kindEnd
)

var kindNames = [...]string{
	KindConnected:          "connected",
	KindDisconnected:       "disconnected",
	KindError:              "error",
	KindWebsocketConnected: "websocket_connected",
	KindRoomEntered:        "room_entered",
	KindDecodedData:        "decoded_data",
	KindWebsocketData:      "websocket_data",
	KindChat:               "chat",
	KindGift:               "gift",
	KindMember:             "member",
	KindLike:               "like",
	KindSocial:             "social",
	KindFollow:             "follow",
	KindShare:              "share",
	KindControl:            "control",
	KindStreamEnd:          "stream_end",
	KindRoomUser:           "room_user",
	KindQuestion:           "question",
	KindLinkMicBattle:      "link_mic_battle",
	KindLinkMicArmies:      "link_mic_armies",
	KindLiveIntro:          "live_intro",
	KindEmote:              "emote",
	KindEnvelope:           "envelope",
	KindBarrage:            "barrage",
	KindSuperFan:           "super_fan",
	KindSubscribe:          "subscribe",
	KindRankUpdate:         "rank_update",
	KindRoomMessage:        "room_message",
}

func (k Kind) String() string {
	if k <= 0 || k >= kindEnd {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind: обратное к String (регистр не важен).
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := KindConnected; k < kindEnd; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return 0, false
}

// AllKinds: все события по порядку.
func AllKinds() []Kind {
	out := make([]Kind, 0, int(kindEnd)-1)
	for k := KindConnected; k < kindEnd; k++ {
		out = append(out, k)
	}
	return out
}

// Event: одно событие. Реализации есть только в этом пакете.
type Event interface {
	Kind() Kind
	isEvent()
}

// RoomState: что известно о комнате на момент подключения.
type RoomState struct {
	UniqueID string                 `json:"uniqueId"`
	RoomID   string                 `json:"roomId"`
	Snapshot *resolver.RoomSnapshot `json:"roomInfo,omitempty"`
	Gifts    []webclient.Gift       `json:"availableGifts,omitempty"`
}

type Connected struct {
	State RoomState `json:"state"`
}

type Disconnected struct {
	Code   int    `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// Error: диагностическая ошибка; шлётся, только если на KindError
// кто-то подписан.
type Error struct {
	Info string `json:"info"`
	Err  error  `json:"-"`
}

func (e Error) Message() string {
	if e.Err == nil {
		return e.Info
	}
	return e.Info + ": " + e.Err.Error()
}

type WebsocketConnected struct {
	URL string `json:"url"`
}

type RoomEntered struct {
	Frame *codec.DecodedFrame `json:"frame"`
}

// DecodedData: любое декодированное сообщение до разбора по категориям.
type DecodedData struct {
	Type string       `json:"type"`
	Data codec.Schema `json:"data"`
	Raw  []byte       `json:"-"`
}

// WebsocketData: сырой кадр как пришёл.
type WebsocketData struct {
	Data []byte `json:"-"`
}

// Message: событие аудитории без особой обработки (чат, лайк, ...).
type Message struct {
	Category Kind         `json:"-"`
	Type     string       `json:"type"`
	Data     codec.Schema `json:"data"`
}

// Gift: подарок; Extended заполнен, если включена расширенная информация
// о подарках и подарок нашёлся в каталоге.
type Gift struct {
	Data     *codec.GiftMessage `json:"data"`
	Extended *webclient.Gift    `json:"extendedGiftInfo,omitempty"`
}

type StreamEnd struct {
	Action int32 `json:"action"`
}

func (Connected) Kind() Kind          { return KindConnected }
func (Disconnected) Kind() Kind       { return KindDisconnected }
func (Error) Kind() Kind              { return KindError }
func (WebsocketConnected) Kind() Kind { return KindWebsocketConnected }
func (RoomEntered) Kind() Kind        { return KindRoomEntered }
func (DecodedData) Kind() Kind        { return KindDecodedData }
func (WebsocketData) Kind() Kind      { return KindWebsocketData }
func (m Message) Kind() Kind          { return m.Category }
func (Gift) Kind() Kind               { return KindGift }
func (StreamEnd) Kind() Kind          { return KindStreamEnd }

func (Connected) isEvent()          {}
func (Disconnected) isEvent()       {}
func (Error) isEvent()              {}
func (WebsocketConnected) isEvent() {}
func (RoomEntered) isEvent()        {}
func (DecodedData) isEvent()        {}
func (WebsocketData) isEvent()      {}
func (Message) isEvent()            {}
func (Gift) isEvent()               {}
func (StreamEnd) isEvent()          {}
