package codec

// Message: одно вложенное сообщение внутри FetchResult.
// Decoded заполняется декодером, если тип известен; при ошибке разбора
// заполняется DecodeErr, а Payload остаётся как есть.
type Message struct {
	Type      string `json:"type"`
	Payload   []byte `json:"-"`
	MsgID     int64  `json:"msgId,omitempty"`
	MsgType   int32  `json:"msgType,omitempty"`
	Offset    int64  `json:"offset,omitempty"`
	IsHistory bool   `json:"isHistory,omitempty"`

	Decoded   Schema `json:"decoded,omitempty"`
	DecodeErr error  `json:"-"`
}

func (m *Message) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Type, err = f.str()
		case 2:
			m.Payload, err = f.bytes()
		case 3:
			m.MsgID, err = f.int64()
		case 4:
			m.MsgType, err = f.int32()
		case 5:
			m.Offset, err = f.int64()
		case 6:
			m.IsHistory, err = f.bool()
		}
		return err
	})
}

func (m *Message) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Type)
	b = appendBytes(b, 2, m.Payload)
	b = appendVarint(b, 3, uint64(m.MsgID))
	b = appendVarint(b, 4, uint64(m.MsgType))
	b = appendVarint(b, 5, uint64(m.Offset))
	b = appendBool(b, 6, m.IsHistory)
	return b
}

// FetchResult: ответ webcast/fetch и содержимое кадров "msg".
// Начальный FetchResult (из подписанного запроса) несёт ещё и адрес
// вебсокета, курсор и internal_ext для подключения.
type FetchResult struct {
	Messages          []*Message        `json:"messages"`
	Cursor            string            `json:"cursor"`
	FetchInterval     int64             `json:"fetchInterval,omitempty"`
	Now               int64             `json:"now,omitempty"`
	InternalExt       string            `json:"internalExt,omitempty"`
	FetchType         int32             `json:"fetchType,omitempty"`
	WSParams          map[string]string `json:"wsParams,omitempty"`
	HeartbeatDuration int64             `json:"heartbeatDuration,omitempty"`
	NeedsAck          bool              `json:"needsAck,omitempty"`
	WSURL             string            `json:"wsUrl,omitempty"`
}

func (*FetchResult) TypeName() string { return TypeFetchResult }

func (r *FetchResult) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			var m *Message
			if m, err = sub[Message](f); err == nil {
				r.Messages = append(r.Messages, m)
			}
		case 2:
			r.Cursor, err = f.str()
		case 3:
			r.FetchInterval, err = f.int64()
		case 4:
			r.Now, err = f.int64()
		case 5:
			r.InternalExt, err = f.str()
		case 6:
			r.FetchType, err = f.int32()
		case 7:
			if r.WSParams == nil {
				r.WSParams = map[string]string{}
			}
			err = mapEntry(f, r.WSParams)
		case 8:
			r.HeartbeatDuration, err = f.int64()
		case 9:
			r.NeedsAck, err = f.bool()
		case 10:
			r.WSURL, err = f.str()
		}
		return err
	})
}

func (r *FetchResult) Marshal() []byte {
	var b []byte
	for _, m := range r.Messages {
		b = appendMessage(b, 1, m)
	}
	b = appendString(b, 2, r.Cursor)
	b = appendVarint(b, 3, uint64(r.FetchInterval))
	b = appendVarint(b, 4, uint64(r.Now))
	b = appendString(b, 5, r.InternalExt)
	b = appendVarint(b, 6, uint64(r.FetchType))
	b = appendMap(b, 7, r.WSParams)
	b = appendVarint(b, 8, uint64(r.HeartbeatDuration))
	b = appendBool(b, 9, r.NeedsAck)
	b = appendString(b, 10, r.WSURL)
	return b
}

// ========================= служебные исходящие сообщения =========================

// HeartbeatMessage: тело кадра "hb".
type HeartbeatMessage struct {
	RoomID          uint64
	SendPacketSeqID uint64
}

func (*HeartbeatMessage) TypeName() string { return TypeHeartbeat }

func (h *HeartbeatMessage) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, h.RoomID)
	b = appendVarint(b, 2, h.SendPacketSeqID)
	return b
}

func (h *HeartbeatMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			h.RoomID, err = f.uint()
		case 2:
			h.SendPacketSeqID, err = f.uint()
		}
		return err
	})
}

// EnterRoomMessage: тело кадра "im_enter_room".
type EnterRoomMessage struct {
	RoomID                  uint64
	RoomTag                 string
	LiveRegion              string
	LiveID                  uint64
	Identity                string
	Cursor                  string
	AccountType             uint64
	EnterUniqueID           uint64
	FilterWelcomeMsg        string
	IsAnchorContinueKeepMsg bool
}

func (*EnterRoomMessage) TypeName() string { return TypeEnterRoom }

// NewEnterRoomMessage: значения, которые шлёт официальное приложение
// зрителя (liveId всегда 12).
func NewEnterRoomMessage(roomID uint64) *EnterRoomMessage {
	return &EnterRoomMessage{
		RoomID:           roomID,
		LiveID:           12,
		Identity:         "audience",
		FilterWelcomeMsg: "0",
	}
}

func (m *EnterRoomMessage) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, m.RoomID)
	b = appendString(b, 2, m.RoomTag)
	b = appendString(b, 3, m.LiveRegion)
	b = appendVarint(b, 4, m.LiveID)
	b = appendString(b, 5, m.Identity)
	b = appendString(b, 6, m.Cursor)
	b = appendVarint(b, 7, m.AccountType)
	b = appendVarint(b, 8, m.EnterUniqueID)
	b = appendString(b, 9, m.FilterWelcomeMsg)
	b = appendBool(b, 10, m.IsAnchorContinueKeepMsg)
	return b
}

func (m *EnterRoomMessage) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.RoomID, err = f.uint()
		case 2:
			m.RoomTag, err = f.str()
		case 3:
			m.LiveRegion, err = f.str()
		case 4:
			m.LiveID, err = f.uint()
		case 5:
			m.Identity, err = f.str()
		case 6:
			m.Cursor, err = f.str()
		case 7:
			m.AccountType, err = f.uint()
		case 8:
			m.EnterUniqueID, err = f.uint()
		case 9:
			m.FilterWelcomeMsg, err = f.str()
		case 10:
			m.IsAnchorContinueKeepMsg, err = f.bool()
		}
		return err
	})
}
