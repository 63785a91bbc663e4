package codec

import "google.golang.org/protobuf/encoding/protowire"

// Действия WebcastControlMessage.
const (
	ControlActionUnknown         int32 = 0
	ControlActionStreamPaused    int32 = 1
	ControlActionStreamUnpaused  int32 = 2
	ControlActionStreamEnded     int32 = 3
	ControlActionStreamSuspended int32 = 4
)

// ChatMessage: комментарий в чате.
type ChatMessage struct {
	Common  *Common `json:"common,omitempty"`
	User    *User   `json:"user,omitempty"`
	Content string  `json:"content"`
}

func (*ChatMessage) TypeName() string { return TypeChat }

func (m *ChatMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.User, err = sub[User](f)
		case 3:
			m.Content, err = f.str()
		}
		return err
	})
}

func (m *ChatMessage) Marshal() []byte {
	var b []byte
	b = marshalHead(b, m.Common, m.User)
	b = appendString(b, 3, m.Content)
	return b
}

// GiftMessage: подарок; при стрик-подарках приходит серия сообщений,
// последнее с RepeatEnd=1.
type GiftMessage struct {
	Common      *Common `json:"common,omitempty"`
	GiftID      int64   `json:"giftId"`
	RepeatCount int32   `json:"repeatCount"`
	ComboCount  int32   `json:"comboCount,omitempty"`
	User        *User   `json:"user,omitempty"`
	ToUser      *User   `json:"toUser,omitempty"`
	RepeatEnd   int32   `json:"repeatEnd"`
	GroupID     int64   `json:"groupId,omitempty"`
}

func (*GiftMessage) TypeName() string { return TypeGift }

func (m *GiftMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.GiftID, err = f.int64()
		case 5:
			m.RepeatCount, err = f.int32()
		case 6:
			m.ComboCount, err = f.int32()
		case 7:
			m.User, err = sub[User](f)
		case 8:
			m.ToUser, err = sub[User](f)
		case 9:
			m.RepeatEnd, err = f.int32()
		case 11:
			m.GroupID, err = f.int64()
		}
		return err
	})
}

func (m *GiftMessage) Marshal() []byte {
	var b []byte
	if m.Common != nil {
		b = appendMessage(b, 1, m.Common)
	}
	b = appendVarint(b, 2, uint64(m.GiftID))
	b = appendVarint(b, 5, uint64(m.RepeatCount))
	b = appendVarint(b, 6, uint64(m.ComboCount))
	if m.User != nil {
		b = appendMessage(b, 7, m.User)
	}
	if m.ToUser != nil {
		b = appendMessage(b, 8, m.ToUser)
	}
	b = appendVarint(b, 9, uint64(m.RepeatEnd))
	b = appendVarint(b, 11, uint64(m.GroupID))
	return b
}

// LikeMessage: пачка лайков от зрителя.
type LikeMessage struct {
	Common     *Common `json:"common,omitempty"`
	LikeCount  int32   `json:"likeCount"`
	TotalLikes int64   `json:"totalLikeCount"`
	User       *User   `json:"user,omitempty"`
}

func (*LikeMessage) TypeName() string { return TypeLike }

func (m *LikeMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.LikeCount, err = f.int32()
		case 3:
			m.TotalLikes, err = f.int64()
		case 5:
			m.User, err = sub[User](f)
		}
		return err
	})
}

func (m *LikeMessage) Marshal() []byte {
	var b []byte
	if m.Common != nil {
		b = appendMessage(b, 1, m.Common)
	}
	b = appendVarint(b, 2, uint64(m.LikeCount))
	b = appendVarint(b, 3, uint64(m.TotalLikes))
	if m.User != nil {
		b = appendMessage(b, 5, m.User)
	}
	return b
}

// MemberMessage: зритель зашёл в комнату.
type MemberMessage struct {
	Common      *Common `json:"common,omitempty"`
	User        *User   `json:"user,omitempty"`
	MemberCount int64   `json:"memberCount"`
	Action      int32   `json:"action"`
}

func (*MemberMessage) TypeName() string { return TypeMember }

func (m *MemberMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.User, err = sub[User](f)
		case 3:
			m.MemberCount, err = f.int64()
		case 10:
			m.Action, err = f.int32()
		}
		return err
	})
}

func (m *MemberMessage) Marshal() []byte {
	var b []byte
	b = marshalHead(b, m.Common, m.User)
	b = appendVarint(b, 3, uint64(m.MemberCount))
	b = appendVarint(b, 10, uint64(m.Action))
	return b
}

// SocialMessage: подписка / репост; тип различается по
// Common.DisplayText.DisplayType.
type SocialMessage struct {
	Common      *Common `json:"common,omitempty"`
	User        *User   `json:"user,omitempty"`
	ShareType   int64   `json:"shareType,omitempty"`
	Action      int64   `json:"action,omitempty"`
	ShareTarget string  `json:"shareTarget,omitempty"`
	FollowCount int64   `json:"followCount,omitempty"`
}

func (*SocialMessage) TypeName() string { return TypeSocial }

func (m *SocialMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.User, err = sub[User](f)
		case 3:
			m.ShareType, err = f.int64()
		case 4:
			m.Action, err = f.int64()
		case 5:
			m.ShareTarget, err = f.str()
		case 6:
			m.FollowCount, err = f.int64()
		}
		return err
	})
}

func (m *SocialMessage) Marshal() []byte {
	var b []byte
	b = marshalHead(b, m.Common, m.User)
	b = appendVarint(b, 3, uint64(m.ShareType))
	b = appendVarint(b, 4, uint64(m.Action))
	b = appendString(b, 5, m.ShareTarget)
	b = appendVarint(b, 6, uint64(m.FollowCount))
	return b
}

// ControlMessage: управляющее сообщение комнаты (пауза, конец эфира...).
type ControlMessage struct {
	Common *Common `json:"common,omitempty"`
	Action int32   `json:"action"`
}

func (*ControlMessage) TypeName() string { return TypeControl }

// EndsStream: эфир завершён ведущим или приостановлен модерацией.
func (m *ControlMessage) EndsStream() bool {
	return m.Action == ControlActionStreamEnded || m.Action == ControlActionStreamSuspended
}

func (m *ControlMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.Action, err = f.int32()
		}
		return err
	})
}

func (m *ControlMessage) Marshal() []byte {
	var b []byte
	if m.Common != nil {
		b = appendMessage(b, 1, m.Common)
	}
	b = appendVarint(b, 2, uint64(m.Action))
	return b
}

// RoomUserSeqMessage: счётчик зрителей и топ дарителей.
type RoomUserSeqMessage struct {
	Common      *Common `json:"common,omitempty"`
	Ranks       []*User `json:"ranks,omitempty"`
	ViewerCount int64   `json:"viewerCount"`
	TotalUser   int64   `json:"totalUser,omitempty"`
}

func (*RoomUserSeqMessage) TypeName() string { return TypeRoomUserSeq }

func (m *RoomUserSeqMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			var u *User
			if u, err = sub[User](f); err == nil {
				m.Ranks = append(m.Ranks, u)
			}
		case 3:
			m.ViewerCount, err = f.int64()
		case 6:
			m.TotalUser, err = f.int64()
		}
		return err
	})
}

// QuestionNewMessage: новый вопрос в Q&A.
type QuestionNewMessage struct {
	Common  *Common `json:"common,omitempty"`
	Content string  `json:"content"`
	User    *User   `json:"user,omitempty"`
}

func (*QuestionNewMessage) TypeName() string { return TypeQuestionNew }

func (m *QuestionNewMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			// details { content = 2; user = 5; }
			if f.typ != protowire.BytesType {
				return f.wireErr(protowire.BytesType)
			}
			err = eachField(f.raw, func(d field) (err error) {
				switch d.num {
				case 2:
					m.Content, err = d.str()
				case 5:
					m.User, err = sub[User](d)
				}
				return err
			})
		}
		return err
	})
}

// LinkMicBattle: начало / ход батла между ведущими.
type LinkMicBattle struct {
	Common   *Common `json:"common,omitempty"`
	BattleID int64   `json:"battleId"`
	Action   int32   `json:"action,omitempty"`
}

func (*LinkMicBattle) TypeName() string { return TypeLinkMicBattle }

func (m *LinkMicBattle) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.BattleID, err = f.int64()
		case 4:
			m.Action, err = f.int32()
		}
		return err
	})
}

// LinkMicArmies: очки команд в батле.
type LinkMicArmies struct {
	Common       *Common `json:"common,omitempty"`
	BattleID     int64   `json:"battleId"`
	BattleStatus int32   `json:"battleStatus,omitempty"`
}

func (*LinkMicArmies) TypeName() string { return TypeLinkMicArmies }

func (m *LinkMicArmies) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.BattleID, err = f.int64()
		case 7:
			m.BattleStatus, err = f.int32()
		}
		return err
	})
}

// LiveIntroMessage: описание эфира от ведущего.
type LiveIntroMessage struct {
	Common  *Common `json:"common,omitempty"`
	RoomID  int64   `json:"roomId,omitempty"`
	Content string  `json:"content"`
	Host    *User   `json:"host,omitempty"`
}

func (*LiveIntroMessage) TypeName() string { return TypeLiveIntro }

func (m *LiveIntroMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.RoomID, err = f.int64()
		case 4:
			m.Content, err = f.str()
		case 5:
			m.Host, err = sub[User](f)
		}
		return err
	})
}

// EmoteChatMessage: стикер-эмоция в чате.
type EmoteChatMessage struct {
	Common   *Common  `json:"common,omitempty"`
	User     *User    `json:"user,omitempty"`
	EmoteIDs []string `json:"emoteIds,omitempty"`
}

func (*EmoteChatMessage) TypeName() string { return TypeEmoteChat }

func (m *EmoteChatMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.User, err = sub[User](f)
		case 3:
			// emote { emoteId = 1; ... }
			if f.typ != protowire.BytesType {
				return f.wireErr(protowire.BytesType)
			}
			err = eachField(f.raw, func(e field) error {
				if e.num != 1 {
					return nil
				}
				id, err := e.str()
				if err == nil {
					m.EmoteIDs = append(m.EmoteIDs, id)
				}
				return err
			})
		}
		return err
	})
}

// EnvelopeMessage: сундук с монетами.
type EnvelopeMessage struct {
	Common       *Common `json:"common,omitempty"`
	EnvelopeID   string  `json:"envelopeId"`
	BusinessType int32   `json:"businessType,omitempty"`
	SendUserName string  `json:"sendUserName,omitempty"`
	DiamondCount int32   `json:"diamondCount"`
	PeopleCount  int32   `json:"peopleCount"`
}

func (*EnvelopeMessage) TypeName() string { return TypeEnvelope }

func (m *EnvelopeMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			if f.typ != protowire.BytesType {
				return f.wireErr(protowire.BytesType)
			}
			err = eachField(f.raw, func(e field) (err error) {
				switch e.num {
				case 1:
					m.EnvelopeID, err = e.str()
				case 2:
					m.BusinessType, err = e.int32()
				case 4:
					m.SendUserName, err = e.str()
				case 5:
					m.DiamondCount, err = e.int32()
				case 6:
					m.PeopleCount, err = e.int32()
				}
				return err
			})
		}
		return err
	})
}

// BarrageMessage: баннер поверх эфира (super fan, вход VIP и т.п.).
type BarrageMessage struct {
	Common  *Common `json:"common,omitempty"`
	MsgType int32   `json:"msgType,omitempty"`
	Content *Text   `json:"content,omitempty"`
}

func (*BarrageMessage) TypeName() string { return TypeBarrage }

func (m *BarrageMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 3:
			m.MsgType, err = f.int32()
		case 4:
			m.Content, err = sub[Text](f)
		}
		return err
	})
}

func (m *BarrageMessage) Marshal() []byte {
	var b []byte
	if m.Common != nil {
		b = appendMessage(b, 1, m.Common)
	}
	b = appendVarint(b, 3, uint64(m.MsgType))
	if m.Content != nil {
		b = appendMessage(b, 4, m.Content)
	}
	return b
}

// ContentDisplayType: DisplayType из Content, если он есть.
func (m *BarrageMessage) ContentDisplayType() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.DisplayType
}

// SubNotifyMessage: платная подписка на ведущего.
type SubNotifyMessage struct {
	Common   *Common `json:"common,omitempty"`
	User     *User   `json:"user,omitempty"`
	SubMonth int64   `json:"subMonth,omitempty"`
}

func (*SubNotifyMessage) TypeName() string { return TypeSubNotify }

func (m *SubNotifyMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.User, err = sub[User](f)
		case 4:
			m.SubMonth, err = f.int64()
		}
		return err
	})
}

// RankUpdateMessage: изменение места ведущего в рейтингах.
type RankUpdateMessage struct {
	Common    *Common `json:"common,omitempty"`
	GroupType int64   `json:"groupType,omitempty"`
	Priority  int64   `json:"priority,omitempty"`
}

func (*RankUpdateMessage) TypeName() string { return TypeRankUpdate }

func (m *RankUpdateMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 3:
			m.GroupType, err = f.int64()
		case 5:
			m.Priority, err = f.int64()
		}
		return err
	})
}

// RoomMessage: системное сообщение комнаты (правила, приветствие).
type RoomMessage struct {
	Common  *Common `json:"common,omitempty"`
	Content string  `json:"content"`
}

func (*RoomMessage) TypeName() string { return TypeRoom }

func (m *RoomMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Common, err = sub[Common](f)
		case 2:
			m.Content, err = f.str()
		}
		return err
	})
}

func marshalHead(b []byte, c *Common, u *User) []byte {
	if c != nil {
		b = appendMessage(b, 1, c)
	}
	if u != nil {
		b = appendMessage(b, 2, u)
	}
	return b
}
