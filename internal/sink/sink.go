// Package sink пересылает события клиента наружу: строками JSON в
// io.Writer или публикацией в канал Redis.
//
// Формат конверта:
//
//	{"type":"status","status":"connected","state":{...}}
//	{"type":"event","event":"gift","payload":{...}}
//	{"type":"error","message":"...","detail":{"message":"..."}}
package sink

import (
	"context"
	"time"

	"github.com/EgorLis/webcast/internal/events"
	"github.com/rs/zerolog"
)

const (
	TypeStatus = "status"
	TypeEvent  = "event"
	TypeError  = "error"

	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

type Envelope struct {
	Type    string    `json:"type"`
	Status  string    `json:"status,omitempty"`
	Event   string    `json:"event,omitempty"`
	Message string    `json:"message,omitempty"`
	State   any       `json:"state,omitempty"`
	Payload any       `json:"payload,omitempty"`
	Detail  any       `json:"detail,omitempty"`
	Time    time.Time `json:"ts"`
}

type ErrorDetail struct {
	Message string `json:"message"`
}

// FromEvent раскладывает событие по конвертам: Connected/Disconnected —
// status, Error — error, остальное — event.
func FromEvent(e events.Event) Envelope {
	env := Envelope{Time: time.Now().UTC()}
	switch ev := e.(type) {
	case events.Connected:
		env.Type, env.Status, env.State = TypeStatus, StatusConnected, ev.State
	case events.Disconnected:
		env.Type, env.Status, env.Detail = TypeStatus, StatusDisconnected, ev
	case events.Error:
		env.Type, env.Message = TypeError, ev.Info
		if ev.Err != nil {
			env.Detail = ErrorDetail{Message: ev.Err.Error()}
		}
	case events.Message:
		env.Type, env.Event, env.Payload = TypeEvent, e.Kind().String(), ev.Data
	default:
		env.Type, env.Event, env.Payload = TypeEvent, e.Kind().String(), e
	}
	return env
}

type Sink interface {
	Write(ctx context.Context, env Envelope) error
	Close() error
}

// Subscriber — то, на что можно подписаться: *events.Bus или
// *live.Connection.
type Subscriber interface {
	Subscribe(fn events.Handler, kinds ...events.Kind) (cancel func())
}

// Forward подписывает s на события src. Ошибки записи только логируются:
// обработчик вызывается на горутине чтения и не должен её останавливать.
func Forward(ctx context.Context, src Subscriber, s Sink, log zerolog.Logger, kinds ...events.Kind) (cancel func()) {
	return src.Subscribe(func(e events.Event) {
		if err := s.Write(ctx, FromEvent(e)); err != nil {
			log.Warn().Err(err).Str("event", e.Kind().String()).Msg("sink write failed")
		}
	}, kinds...)
}
