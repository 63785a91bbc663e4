package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Статусы комнаты. Бан модератором приходит тем же кодом, что и конец эфира.
const (
	StatusLive  = 2
	StatusEnded = 4
)

var (
	ErrNoRoomID = errors.New("resolver: room id missing in response")
	ErrNoStatus = errors.New("resolver: room status missing in response")
)

type Owner struct {
	ID        string `json:"id"`
	UniqueID  string `json:"uniqueId"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// RoomSnapshot — состояние комнаты на момент запроса. Каждый запрос
// даёт новый снимок, старый не меняется.
type RoomSnapshot struct {
	RoomID      string          `json:"roomId"`
	Status      int             `json:"status"`
	Title       string          `json:"title,omitempty"`
	Owner       Owner           `json:"owner"`
	ViewerCount int64           `json:"viewerCount"`
	LikeCount   int64           `json:"likeCount"`
	Source      string          `json:"source"`
	Raw         json.RawMessage `json:"-"`
}

// Offline — эфир завершён (или забанен).
func (s *RoomSnapshot) Offline() bool { return s.Status == StatusEnded }

// ========================= веб: SIGI_STATE и api-live =========================

// liveRoomUserInfo — общая форма SIGI_STATE.LiveRoom.liveRoomUserInfo
// и data из /api-live/user/room/.
type liveRoomUserInfo struct {
	User struct {
		ID          string `json:"id"`
		UniqueID    string `json:"uniqueId"`
		Nickname    string `json:"nickname"`
		AvatarThumb string `json:"avatarThumb"`
		RoomID      string `json:"roomId"`
	} `json:"user"`
	LiveRoom *struct {
		Status        *int   `json:"status"`
		Title         string `json:"title"`
		LiveRoomStats struct {
			UserCount int64 `json:"userCount"`
			LikeCount int64 `json:"likeCount"`
		} `json:"liveRoomStats"`
	} `json:"liveRoom"`
}

func (info *liveRoomUserInfo) status() (int, bool) {
	if info.LiveRoom == nil || info.LiveRoom.Status == nil {
		return 0, false
	}
	return *info.LiveRoom.Status, true
}

func (info *liveRoomUserInfo) snapshot(source string, raw []byte) (*RoomSnapshot, error) {
	if info.User.RoomID == "" {
		return nil, ErrNoRoomID
	}
	st, ok := info.status()
	if !ok {
		return nil, ErrNoStatus
	}
	snap := &RoomSnapshot{
		RoomID: info.User.RoomID,
		Status: st,
		Owner: Owner{
			ID:        info.User.ID,
			UniqueID:  info.User.UniqueID,
			Nickname:  info.User.Nickname,
			AvatarURL: info.User.AvatarThumb,
		},
		Source: source,
		Raw:    append(json.RawMessage(nil), raw...),
	}
	if lr := info.LiveRoom; lr != nil {
		snap.Title = lr.Title
		snap.ViewerCount = lr.LiveRoomStats.UserCount
		snap.LikeCount = lr.LiveRoomStats.LikeCount
	}
	return snap, nil
}

// parseProfileHTML достаёт liveRoomUserInfo из <script id="SIGI_STATE">.
func parseProfileHTML(html string) (*liveRoomUserInfo, []byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find("script#SIGI_STATE").First()
	if sel.Length() == 0 {
		return nil, nil, errors.New("SIGI_STATE not found in page")
	}
	raw := []byte(sel.Text())

	var state struct {
		LiveRoom struct {
			LiveRoomUserInfo liveRoomUserInfo `json:"liveRoomUserInfo"`
		} `json:"LiveRoom"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, nil, fmt.Errorf("decode SIGI_STATE: %w", err)
	}
	return &state.LiveRoom.LiveRoomUserInfo, raw, nil
}

func parseAPILive(raw []byte) (*liveRoomUserInfo, error) {
	var resp struct {
		StatusCode int              `json:"statusCode"`
		Message    string           `json:"message"`
		Data       liveRoomUserInfo `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode api-live: %w", err)
	}
	if resp.StatusCode != 0 {
		return nil, fmt.Errorf("api-live status %d: %s", resp.StatusCode, resp.Message)
	}
	return &resp.Data, nil
}

// ========================= webcast/room/info =========================

// parseRoomInfo разбирает ответ webcast/room/info (его же отдают
// облачный и свой сервисы в room_info).
func parseRoomInfo(source string, raw []byte) (*RoomSnapshot, error) {
	var resp struct {
		Data *struct {
			IDStr     string `json:"id_str"`
			Status    *int   `json:"status"`
			Title     string `json:"title"`
			UserCount int64  `json:"user_count"`
			LikeCount int64  `json:"like_count"`
			Stats     struct {
				LikeCount int64 `json:"like_count"`
			} `json:"stats"`
			Owner struct {
				IDStr       string `json:"id_str"`
				DisplayID   string `json:"display_id"`
				Nickname    string `json:"nickname"`
				AvatarThumb struct {
					URLList []string `json:"url_list"`
				} `json:"avatar_thumb"`
			} `json:"owner"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode room info: %w", err)
	}
	d := resp.Data
	if d == nil {
		return nil, errors.New("room info: data missing")
	}
	if d.IDStr == "" {
		return nil, ErrNoRoomID
	}
	if d.Status == nil {
		return nil, ErrNoStatus
	}
	snap := &RoomSnapshot{
		RoomID:      d.IDStr,
		Status:      *d.Status,
		Title:       d.Title,
		ViewerCount: d.UserCount,
		LikeCount:   d.LikeCount,
		Owner: Owner{
			ID:       d.Owner.IDStr,
			UniqueID: d.Owner.DisplayID,
			Nickname: d.Owner.Nickname,
		},
		Source: source,
		Raw:    append(json.RawMessage(nil), raw...),
	}
	if snap.LikeCount == 0 {
		snap.LikeCount = d.Stats.LikeCount
	}
	if urls := d.Owner.AvatarThumb.URLList; len(urls) > 0 {
		snap.Owner.AvatarURL = urls[0]
	}
	return snap, nil
}

// ParseRoomInfo — то же для ответа webcast/room/info, полученного напрямую.
func ParseRoomInfo(raw []byte) (*RoomSnapshot, error) {
	return parseRoomInfo("webcast", raw)
}
