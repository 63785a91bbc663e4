package wsclient

import (
	"errors"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/gorilla/websocket"
)

// readLoop обрабатывает кадры строго по порядку прихода, на этой же
// горутине вызываются все обработчики.
func (c *Client) readLoop() {
	code, reason := websocket.CloseAbnormalClosure, ""
	defer func() {
		c.shutdown(code, reason, false)
	}()

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code, reason = ce.Code, ce.Text
			} else if !c.closing.Load() && c.OnError != nil {
				c.OnError(err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	if c.OnData != nil {
		c.OnData(data)
	}

	frame, err := c.dec.DecodeFrame(data)
	if err != nil {
		c.log.Debug().Err(err).Msg("push frame decode failed")
		if c.OnDecodeError != nil {
			c.OnDecodeError(err)
		}
		return
	}

	if res := frame.FetchResult; res != nil {
		if res.NeedsAck {
			c.sendAck(frame.LogID, res.InternalExt)
		}
		if c.OnFetchResult != nil {
			c.OnFetchResult(res)
		}
	}

	if frame.PayloadType == codec.PayloadEnterRoomResp && c.OnRoomEntered != nil {
		c.OnRoomEntered(frame)
	}
}
