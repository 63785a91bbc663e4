package codec

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Имена схем. Совпадают с полем Message.Type, которое присылает сервер.
const (
	TypeFetchResult = "ProtoMessageFetchResult"
	TypePushFrame   = "WebcastPushFrame"
	TypeHeartbeat   = "HeartbeatMessage"
	TypeEnterRoom   = "WebcastImEnterRoomMessage"

	TypeChat          = "WebcastChatMessage"
	TypeGift          = "WebcastGiftMessage"
	TypeLike          = "WebcastLikeMessage"
	TypeMember        = "WebcastMemberMessage"
	TypeSocial        = "WebcastSocialMessage"
	TypeControl       = "WebcastControlMessage"
	TypeRoomUserSeq   = "WebcastRoomUserSeqMessage"
	TypeQuestionNew   = "WebcastQuestionNewMessage"
	TypeLinkMicBattle = "WebcastLinkMicBattle"
	TypeLinkMicArmies = "WebcastLinkMicArmies"
	TypeLiveIntro     = "WebcastLiveIntroMessage"
	TypeEmoteChat     = "WebcastEmoteChatMessage"
	TypeEnvelope      = "WebcastEnvelopeMessage"
	TypeBarrage       = "WebcastBarrageMessage"
	TypeSubNotify     = "WebcastSubNotifyMessage"
	TypeRankUpdate    = "WebcastRankUpdateMessage"
	TypeRoom          = "WebcastRoomMessage"
)

// Schema — любое сообщение, которое умеет декодер.
type Schema interface {
	TypeName() string
	Unmarshal([]byte) error
}

// ErrNoSuchSchema — имя типа не зарегистрировано.
var ErrNoSuchSchema = errors.New("codec: no such schema")

// SchemaDecodeError — байты не разобрались как сообщение данного типа.
type SchemaDecodeError struct {
	Type   string
	Base64 string // пусто, если ShowBase64 выключен
	Err    error
}

func (e *SchemaDecodeError) Error() string {
	msg := fmt.Sprintf("codec: decode %s: %v", e.Type, e.Err)
	if e.Base64 != "" {
		msg += " (raw: " + e.Base64 + ")"
	}
	return msg
}

func (e *SchemaDecodeError) Unwrap() error { return e.Err }

var registry = map[string]func() Schema{
	TypeFetchResult:   func() Schema { return new(FetchResult) },
	TypePushFrame:     func() Schema { return new(pushFrameSchema) },
	TypeHeartbeat:     func() Schema { return new(HeartbeatMessage) },
	TypeEnterRoom:     func() Schema { return new(EnterRoomMessage) },
	TypeChat:          func() Schema { return new(ChatMessage) },
	TypeGift:          func() Schema { return new(GiftMessage) },
	TypeLike:          func() Schema { return new(LikeMessage) },
	TypeMember:        func() Schema { return new(MemberMessage) },
	TypeSocial:        func() Schema { return new(SocialMessage) },
	TypeControl:       func() Schema { return new(ControlMessage) },
	TypeRoomUserSeq:   func() Schema { return new(RoomUserSeqMessage) },
	TypeQuestionNew:   func() Schema { return new(QuestionNewMessage) },
	TypeLinkMicBattle: func() Schema { return new(LinkMicBattle) },
	TypeLinkMicArmies: func() Schema { return new(LinkMicArmies) },
	TypeLiveIntro:     func() Schema { return new(LiveIntroMessage) },
	TypeEmoteChat:     func() Schema { return new(EmoteChatMessage) },
	TypeEnvelope:      func() Schema { return new(EnvelopeMessage) },
	TypeBarrage:       func() Schema { return new(BarrageMessage) },
	TypeSubNotify:     func() Schema { return new(SubNotifyMessage) },
	TypeRankUpdate:    func() Schema { return new(RankUpdateMessage) },
	TypeRoom:          func() Schema { return new(RoomMessage) },
}

// pushFrameSchema — PushFrame в роли Schema (у самого кадра нет TypeName,
// чтобы не путать его с событийными сообщениями).
type pushFrameSchema struct{ PushFrame }

func (*pushFrameSchema) TypeName() string { return TypePushFrame }

// Registered сообщает, знает ли декодер данный тип.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Decoder декодирует сообщения по имени типа.
type Decoder struct {
	// SkipTypes — вложенные сообщения этих типов не декодируются
	// и остаются в Message.Payload как есть.
	SkipTypes map[string]struct{}
	// ShowBase64: класть сырые байты в SchemaDecodeError (NewDecoder включает).
	ShowBase64 bool

	Logger zerolog.Logger
}

func NewDecoder(skip ...string) *Decoder {
	d := &Decoder{
		SkipTypes:  make(map[string]struct{}, len(skip)),
		ShowBase64: true,
		Logger:     zerolog.Nop(),
	}
	for _, t := range skip {
		d.SkipTypes[t] = struct{}{}
	}
	return d
}

func (d *Decoder) skipped(name string) bool {
	_, ok := d.SkipTypes[name]
	return ok
}

// Decode разбирает b как сообщение типа name. Для FetchResult вложенные
// сообщения тоже декодируются (см. DecodeFetchResult).
func (d *Decoder) Decode(name string, b []byte) (Schema, error) {
	if name == TypeFetchResult {
		return d.DecodeFetchResult(b)
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchSchema, name)
	}
	m := ctor()
	if err := m.Unmarshal(b); err != nil {
		return nil, d.decodeErr(name, b, err)
	}
	return m, nil
}

// DecodeFetchResult разбирает контейнер и по возможности каждое вложенное
// сообщение. Ошибка вложенного сообщения пачку не обрывает: она
// попадает в Message.DecodeErr.
func (d *Decoder) DecodeFetchResult(b []byte) (*FetchResult, error) {
	var res FetchResult
	if err := res.Unmarshal(b); err != nil {
		return nil, d.decodeErr(TypeFetchResult, b, err)
	}
	for _, m := range res.Messages {
		if d.skipped(m.Type) || !Registered(m.Type) || m.Type == TypeFetchResult {
			continue
		}
		dec, err := d.Decode(m.Type, m.Payload)
		if err != nil {
			m.DecodeErr = err
			d.Logger.Debug().Err(err).Str("msg_type", m.Type).Msg("nested message decode failed")
			continue
		}
		m.Decoded = dec
	}
	return &res, nil
}

func (d *Decoder) decodeErr(name string, b []byte, err error) error {
	e := &SchemaDecodeError{Type: name, Err: err}
	if d.ShowBase64 {
		e.Base64 = base64.StdEncoding.EncodeToString(b)
	}
	return e
}
