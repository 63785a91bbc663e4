package live

import (
	"fmt"
	"strings"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/events"
	"github.com/EgorLis/webcast/internal/webclient"
)

// messageKinds — типы, для которых достаточно одного события без доп.
// обработки. Social, Control, Gift и Barrage разбираются отдельно.
var messageKinds = map[string]events.Kind{
	codec.TypeChat:          events.KindChat,
	codec.TypeMember:        events.KindMember,
	codec.TypeLike:          events.KindLike,
	codec.TypeRoomUserSeq:   events.KindRoomUser,
	codec.TypeQuestionNew:   events.KindQuestion,
	codec.TypeLinkMicBattle: events.KindLinkMicBattle,
	codec.TypeLinkMicArmies: events.KindLinkMicArmies,
	codec.TypeLiveIntro:     events.KindLiveIntro,
	codec.TypeEmoteChat:     events.KindEmote,
	codec.TypeEnvelope:      events.KindEnvelope,
	codec.TypeSubNotify:     events.KindSubscribe,
	codec.TypeRankUpdate:    events.KindRankUpdate,
	codec.TypeRoom:          events.KindRoomMessage,
}

const superFanDisplayType = "ttlive_superFan"

// processFetchResult раздаёт пачку сообщений подписчикам. Сообщения без
// декодированных данных пропускаются; паника в обработке одного сообщения
// не мешает остальным.
func (c *Connection) processFetchResult(res *codec.FetchResult) {
	for _, m := range res.Messages {
		if m.DecodeErr != nil {
			c.metrics.DecodeError()
			c.handleError(m.DecodeErr, "Failed to decode "+m.Type)
			continue
		}
		if m.Decoded == nil {
			continue
		}

		c.metrics.Message(m.Type)
		c.emit(events.DecodedData{Type: m.Type, Data: m.Decoded, Raw: m.Payload})

		if err := c.dispatchSafe(m); err != nil {
			c.handleError(err, "Failed to process decoded data")
		}
	}
}

func (c *Connection) dispatchSafe(m *codec.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic in handler: %v", m.Type, r)
		}
	}()
	c.dispatch(m.Type, m.Decoded)
	return nil
}

func (c *Connection) dispatch(typ string, data codec.Schema) {
	switch msg := data.(type) {
	case *codec.SocialMessage:
		c.emit(events.Message{Category: events.KindSocial, Type: typ, Data: msg})
		dt := msg.Common.DisplayType()
		switch {
		case strings.Contains(dt, "follow"):
			c.emit(events.Message{Category: events.KindFollow, Type: typ, Data: msg})
		case strings.Contains(dt, "share"):
			c.emit(events.Message{Category: events.KindShare, Type: typ, Data: msg})
		}

	case *codec.ControlMessage:
		c.emit(events.Message{Category: events.KindControl, Type: typ, Data: msg})
		if msg.EndsStream() {
			c.emit(events.StreamEnd{Action: msg.Action})
			c.Disconnect()
		}

	case *codec.GiftMessage:
		ev := events.Gift{Data: msg}
		if c.opts.EnableExtendedGiftInfo && msg.GiftID != 0 {
			ev.Extended = c.findGift(msg.GiftID)
		}
		c.emit(ev)

	case *codec.BarrageMessage:
		if strings.Contains(msg.ContentDisplayType(), superFanDisplayType) {
			c.emit(events.Message{Category: events.KindSuperFan, Type: typ, Data: msg})
		}
		c.emit(events.Message{Category: events.KindBarrage, Type: typ, Data: msg})

	default:
		if kind, ok := messageKinds[typ]; ok {
			c.emit(events.Message{Category: kind, Type: typ, Data: data})
		}
	}
}

func (c *Connection) findGift(id int64) *webclient.Gift {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.gifts {
		if c.gifts[i].ID == id {
			g := c.gifts[i]
			return &g
		}
	}
	return nil
}
