package codec

// Text: текст с шаблоном; DisplayType ("follow", "share",
// "ttlive_superFan", ...) используется для ветвления событий.
type Text struct {
	DisplayType    string `json:"displayType,omitempty"`
	DefaultPattern string `json:"defaultPattern,omitempty"`
}

func (t *Text) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			t.DisplayType, err = f.str()
		case 2:
			t.DefaultPattern, err = f.str()
		}
		return err
	})
}

func (t *Text) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, t.DisplayType)
	b = appendString(b, 2, t.DefaultPattern)
	return b
}

// Common: общий заголовок всех событийных сообщений.
type Common struct {
	Method      string `json:"method,omitempty"`
	MsgID       int64  `json:"msgId,omitempty"`
	RoomID      int64  `json:"roomId,omitempty"`
	CreateTime  int64  `json:"createTime,omitempty"`
	Describe    string `json:"describe,omitempty"`
	DisplayText *Text  `json:"displayText,omitempty"`
}

func (c *Common) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.Method, err = f.str()
		case 2:
			c.MsgID, err = f.int64()
		case 3:
			c.RoomID, err = f.int64()
		case 4:
			c.CreateTime, err = f.int64()
		case 7:
			c.Describe, err = f.str()
		case 8:
			c.DisplayText, err = sub[Text](f)
		}
		return err
	})
}

func (c *Common) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.Method)
	b = appendVarint(b, 2, uint64(c.MsgID))
	b = appendVarint(b, 3, uint64(c.RoomID))
	b = appendVarint(b, 4, uint64(c.CreateTime))
	b = appendString(b, 7, c.Describe)
	if c.DisplayText != nil {
		b = appendMessage(b, 8, c.DisplayText)
	}
	return b
}

// DisplayType: безопасный доступ к Common.DisplayText.DisplayType.
func (c *Common) DisplayType() string {
	if c == nil || c.DisplayText == nil {
		return ""
	}
	return c.DisplayText.DisplayType
}

// Image: картинка (аватар, иконка подарка).
type Image struct {
	URLs []string `json:"urls,omitempty"`
}

func (im *Image) Unmarshal(b []byte) error {
	return eachField(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		s, err := f.str()
		if err == nil {
			im.URLs = append(im.URLs, s)
		}
		return err
	})
}

func (im *Image) Marshal() []byte {
	var b []byte
	for _, u := range im.URLs {
		b = appendString(b, 1, u)
	}
	return b
}

// User: профиль зрителя или ведущего.
type User struct {
	ID             int64  `json:"id,omitempty"`
	Nickname       string `json:"nickname,omitempty"`
	ProfilePicture *Image `json:"profilePicture,omitempty"`
	UniqueID       string `json:"uniqueId,omitempty"`
	SecUID         string `json:"secUid,omitempty"`
}

func (u *User) Unmarshal(b []byte) error {
	return eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			u.ID, err = f.int64()
		case 3:
			u.Nickname, err = f.str()
		case 9:
			u.ProfilePicture, err = sub[Image](f)
		case 38:
			u.UniqueID, err = f.str()
		case 46:
			u.SecUID, err = f.str()
		}
		return err
	})
}

func (u *User) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(u.ID))
	b = appendString(b, 3, u.Nickname)
	if u.ProfilePicture != nil {
		b = appendMessage(b, 9, u.ProfilePicture)
	}
	b = appendString(b, 38, u.UniqueID)
	b = appendString(b, 46, u.SecUID)
	return b
}
