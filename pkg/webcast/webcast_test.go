package webcast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/EgorLis/webcast/pkg/webcast"
	"github.com/rs/zerolog"
)

func TestNew_InvalidUniqueID(t *testing.T) {
	_, err := webcast.New("  ", webcast.DefaultOptions())
	var bad *webcast.InvalidUniqueIDError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want InvalidUniqueIDError", err)
	}
}

func TestConnect_ThroughPublicAPI(t *testing.T) {
	nop := zerolog.Nop()
	opts := webcast.DefaultOptions()
	opts.Logger = &nop
	opts.FetchRoomInfoOnConnect = false
	opts.ConnectWithUniqueID = true
	opts.SignedWebSocketProvider = func(_ context.Context, p webcast.WebSocketParams) (*webcast.FetchResult, error) {
		return &webcast.FetchResult{
			WSURL: "ws://127.0.0.1:1/never-dialed",
			Messages: []*webcast.DecodedMessage{
				{Type: "WebcastChatMessage", Decoded: &webcast.ChatMessage{Content: "hello"}},
			},
		}, nil
	}

	conn, err := webcast.New("https://www.tiktok.com/@alice/live", opts)
	if err != nil {
		t.Fatal(err)
	}
	if conn.UniqueID() != "alice" || conn.State() != webcast.StateDisconnected {
		t.Fatalf("unique id %q, state %v", conn.UniqueID(), conn.State())
	}

	var chats []string
	conn.Subscribe(func(e webcast.Event) {
		msg, ok := e.(webcast.MessageEvent)
		if !ok {
			t.Errorf("event %T, want MessageEvent", e)
			return
		}
		chats = append(chats, msg.Data.(*webcast.ChatMessage).Content)
	}, webcast.KindChat)

	_, err = conn.Connect(context.Background(), "")
	var invalid *webcast.InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidResponseError (no cursor)", err)
	}
	if len(chats) != 1 || chats[0] != "hello" {
		t.Errorf("chats = %v", chats)
	}
	if conn.State() != webcast.StateDisconnected {
		t.Errorf("state = %v", conn.State())
	}
}

func TestParseKind(t *testing.T) {
	k, ok := webcast.ParseKind("super_fan")
	if !ok || k != webcast.KindSuperFan {
		t.Errorf("ParseKind = %v %v", k, ok)
	}
	if len(webcast.AllKinds()) != int(webcast.KindRoomMessage) {
		t.Errorf("kinds = %d", len(webcast.AllKinds()))
	}
}
