package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrStatus: неуспешный HTTP-статус.
var ErrStatus = errors.New("webclient: unexpected status")

func statusErr(path string, code int) error {
	return fmt.Errorf("%w: %s %d", ErrStatus, path, code)
}

// ProfileHTML: HTML страницы эфира пользователя (в ней лежит SIGI_STATE).
func (c *Client) ProfileHTML(ctx context.Context, uniqueID string) (string, error) {
	path := "@" + url.PathEscape(uniqueID) + "/live"
	resp, err := c.Do(ctx, Request{Host: c.webHost, Path: path})
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", statusErr(path, resp.StatusCode())
	}
	return resp.String(), nil
}

// APILiveRoom: ответ /api-live/user/room/ как есть; форму разбирает резолвер.
func (c *Client) APILiveRoom(ctx context.Context, uniqueID string) (json.RawMessage, error) {
	const path = "api-live/user/room/"
	resp, err := c.Do(ctx, Request{
		Host: c.webHost,
		Path: path,
		Query: merge(c.params, map[string]string{
			"aid":        "1988",
			"sourceType": "54",
			"uniqueId":   uniqueID,
		}),
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusErr(path, resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// RoomInfo: webcast/room/info/ для комнаты из p.
func (c *Client) RoomInfo(ctx context.Context, p Params) (json.RawMessage, error) {
	if p.RoomID == "" {
		return nil, errors.New("webclient: room id required")
	}
	const path = "webcast/room/info/"
	resp, err := c.Do(ctx, Request{
		Host:  c.webcastHost,
		Path:  path,
		Query: c.webcastQuery(p, nil),
		Sign:  c.signWebcast,
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusErr(path, resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// Gift: запись каталога подарков.
type Gift struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DiamondCount int    `json:"diamond_count"`
	Type         int    `json:"type"`
	Describe     string `json:"describe,omitempty"`
	Image        struct {
		URLList []string `json:"url_list"`
	} `json:"image"`
}

type giftListResp struct {
	StatusCode int `json:"status_code"`
	Data       struct {
		Gifts []Gift `json:"gifts"`
	} `json:"data"`
}

// GiftList: каталог подарков комнаты. Использует ETag: при 304
// отдаётся прошлый снимок.
func (c *Client) GiftList(ctx context.Context, p Params) ([]Gift, error) {
	const path = "webcast/gift/list/"
	headers := map[string]string{}
	c.mu.RLock()
	if c.giftsETag != "" {
		headers["If-None-Match"] = c.giftsETag
	}
	c.mu.RUnlock()

	resp, err := c.Do(ctx, Request{
		Host:    c.webcastHost,
		Path:    path,
		Query:   c.webcastQuery(p, nil),
		Headers: headers,
		Sign:    c.signWebcast,
	})
	if err != nil {
		return nil, err
	}

	// 304: каталог не изменился
	if resp.StatusCode() == http.StatusNotModified {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return append([]Gift(nil), c.gifts...), nil
	}
	if resp.IsError() {
		return nil, statusErr(path, resp.StatusCode())
	}

	var out giftListResp
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode gift list: %w", err)
	}
	if out.Data.Gifts == nil {
		return nil, errors.New("webclient: gift list missing data.gifts")
	}

	c.mu.Lock()
	c.gifts = out.Data.Gifts
	if et := resp.Header().Get("ETag"); et != "" {
		c.giftsETag = et
	}
	c.mu.Unlock()
	return append([]Gift(nil), out.Data.Gifts...), nil
}
