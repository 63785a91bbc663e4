package codec

import (
	"errors"
	"testing"
)

func chatPayload(t *testing.T, nick, text string) []byte {
	t.Helper()
	return (&ChatMessage{
		Common:  &Common{Method: TypeChat, MsgID: 7},
		User:    &User{ID: 1, Nickname: nick, UniqueID: nick},
		Content: text,
	}).Marshal()
}

func msgFrame(t *testing.T, res *FetchResult, gzip bool) []byte {
	t.Helper()
	payload := res.Marshal()
	if gzip {
		payload = Gzip(payload)
	}
	f := NewPushFrame(PayloadMessage, payload)
	f.LogID = 99
	return f.Marshal()
}

func TestDecodeFrame_PlainAndGzip(t *testing.T) {
	res := &FetchResult{
		Messages:    []*Message{{Type: TypeChat, Payload: chatPayload(t, "alice", "hi")}},
		Cursor:      "c1",
		InternalExt: "ext",
		NeedsAck:    true,
	}

	for _, gz := range []bool{false, true} {
		d := NewDecoder()
		out, err := d.DecodeFrame(msgFrame(t, res, gz))
		if err != nil {
			t.Fatalf("gzip=%v: DecodeFrame: %v", gz, err)
		}
		if out.LogID != 99 || out.PayloadType != PayloadMessage {
			t.Fatalf("gzip=%v: frame = %+v", gz, out.PushFrame)
		}
		if out.FetchResult == nil || out.FetchResult.Cursor != "c1" || !out.FetchResult.NeedsAck {
			t.Fatalf("gzip=%v: fetch result = %+v", gz, out.FetchResult)
		}
		if len(out.FetchResult.Messages) != 1 {
			t.Fatalf("gzip=%v: messages = %d", gz, len(out.FetchResult.Messages))
		}
		chat, ok := out.FetchResult.Messages[0].Decoded.(*ChatMessage)
		if !ok {
			t.Fatalf("gzip=%v: decoded = %T", gz, out.FetchResult.Messages[0].Decoded)
		}
		if chat.Content != "hi" || chat.User.Nickname != "alice" {
			t.Errorf("gzip=%v: chat = %+v", gz, chat)
		}
	}
}

func TestIsGzip(t *testing.T) {
	if !IsGzip(Gzip([]byte("x"))) {
		t.Error("gzip output not detected")
	}
	if IsGzip([]byte{0x1f, 0x8b}) {
		t.Error("two bytes must not count as gzip")
	}
	if IsGzip([]byte{0x0a, 0x02, 0x08}) {
		t.Error("protobuf bytes detected as gzip")
	}
}

func TestDecodeFetchResult_NestedFailureKeepsBatch(t *testing.T) {
	// поле 3 (content) с varint вместо строки
	bad := []byte{0x18, 0x01}
	res := &FetchResult{
		Messages: []*Message{
			{Type: TypeChat, Payload: bad},
			{Type: TypeChat, Payload: chatPayload(t, "bob", "ok")},
			{Type: "WebcastSomethingNew", Payload: []byte{1, 2, 3}},
		},
		Cursor: "c",
	}
	d := NewDecoder()
	d.ShowBase64 = true

	out, err := d.DecodeFetchResult(res.Marshal())
	if err != nil {
		t.Fatalf("DecodeFetchResult: %v", err)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(out.Messages))
	}

	var de *SchemaDecodeError
	if !errors.As(out.Messages[0].DecodeErr, &de) {
		t.Fatalf("first message err = %v, want SchemaDecodeError", out.Messages[0].DecodeErr)
	}
	if de.Type != TypeChat || de.Base64 != "GAE=" {
		t.Errorf("decode error = %+v", de)
	}
	if out.Messages[0].Decoded != nil {
		t.Error("failed message must stay undecoded")
	}
	if _, ok := out.Messages[1].Decoded.(*ChatMessage); !ok {
		t.Errorf("second message decoded = %T", out.Messages[1].Decoded)
	}
	if out.Messages[2].Decoded != nil || out.Messages[2].DecodeErr != nil {
		t.Error("unknown type must stay raw without error")
	}
	if string(out.Messages[2].Payload) != "\x01\x02\x03" {
		t.Errorf("raw payload = %v", out.Messages[2].Payload)
	}
}

func TestDecoder_SkipTypes(t *testing.T) {
	res := &FetchResult{Messages: []*Message{{Type: TypeChat, Payload: chatPayload(t, "a", "b")}}}
	out, err := NewDecoder(TypeChat).DecodeFetchResult(res.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if out.Messages[0].Decoded != nil {
		t.Error("skipped type was decoded")
	}
}

func TestDecode_UnknownSchema(t *testing.T) {
	_, err := NewDecoder().Decode("Nope", nil)
	if !errors.Is(err, ErrNoSuchSchema) {
		t.Fatalf("err = %v, want ErrNoSuchSchema", err)
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	_, err := NewDecoder().DecodeFrame([]byte{0xff, 0xff, 0xff})
	var de *SchemaDecodeError
	if !errors.As(err, &de) || de.Type != TypePushFrame {
		t.Fatalf("err = %v, want push frame decode error", err)
	}
	if de.Base64 != "////" {
		t.Errorf("base64 = %q, want raw frame bytes", de.Base64)
	}

	d := NewDecoder()
	d.ShowBase64 = false
	_, err = d.DecodeFrame([]byte{0xff, 0xff, 0xff})
	if !errors.As(err, &de) || de.Base64 != "" {
		t.Errorf("base64 must be empty when ShowBase64 is off, err = %v", err)
	}
}

func TestDecode_DefaultKeepsRawBytes(t *testing.T) {
	raw := []byte{0x18, 0x01, 0x0a}
	_, err := NewDecoder().Decode(TypeChat, raw)
	var de *SchemaDecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *SchemaDecodeError", err)
	}
	if de.Type != TypeChat || de.Base64 != "GAEK" {
		t.Errorf("decode error = %+v, want type %s with base64 GAEK", de, TypeChat)
	}
}

func TestDecodeFrame_BrokenGzip(t *testing.T) {
	// сигнатура gzip есть, тело обрезано
	f := NewPushFrame(PayloadMessage, []byte{0x1f, 0x8b, 0x08, 0x00})
	data := f.Marshal()
	_, err := NewDecoder().DecodeFrame(data)
	var de *SchemaDecodeError
	if !errors.As(err, &de) || de.Type != TypePushFrame {
		t.Fatalf("err = %v, want push frame decode error", err)
	}
	if de.Base64 == "" {
		t.Error("broken gzip must keep the raw frame")
	}
}

func TestDecodeFrame_HeartbeatNotUnpacked(t *testing.T) {
	hb := NewPushFrame(PayloadHeartbeat, (&HeartbeatMessage{RoomID: 5, SendPacketSeqID: 1}).Marshal())
	out, err := NewDecoder().DecodeFrame(hb.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if out.FetchResult != nil {
		t.Error("heartbeat frame must not carry a fetch result")
	}
}

func TestEnterRoomMessage_Roundtrip(t *testing.T) {
	in := NewEnterRoomMessage(123)
	var out EnterRoomMessage
	if err := out.Unmarshal(in.Marshal()); err != nil {
		t.Fatal(err)
	}
	if out != *in {
		t.Errorf("got %+v, want %+v", out, *in)
	}
}

func TestControlMessage_EndsStream(t *testing.T) {
	cases := map[int32]bool{
		ControlActionStreamPaused:    false,
		ControlActionStreamUnpaused:  false,
		ControlActionStreamEnded:     true,
		ControlActionStreamSuspended: true,
	}
	for action, want := range cases {
		m := &ControlMessage{Action: action}
		if got := m.EndsStream(); got != want {
			t.Errorf("action %d: EndsStream = %v, want %v", action, got, want)
		}
	}
}

func TestSocialDisplayType(t *testing.T) {
	raw := (&SocialMessage{
		Common: &Common{DisplayText: &Text{DisplayType: "pm_mt_msg_viewer_follow"}},
		User:   &User{Nickname: "x"},
	}).Marshal()
	m, err := NewDecoder().Decode(TypeSocial, raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.(*SocialMessage).Common.DisplayType(); got != "pm_mt_msg_viewer_follow" {
		t.Errorf("display type = %q", got)
	}
}
