package live

import (
	"errors"
	"fmt"
)

var (
	ErrRoomIDRequired      = errors.New("live: room id is required to send a message")
	ErrSessionRequired     = errors.New("live: session id is required to send a message")
	ErrRegionTokenRequired = errors.New("live: region token is required to send a message")
)

type AlreadyConnectedError struct{}

func (*AlreadyConnectedError) Error() string { return "live: already connected" }

type AlreadyConnectingError struct{}

func (*AlreadyConnectingError) Error() string { return "live: already connecting" }

type InvalidUniqueIDError struct {
	Input string
}

func (e *InvalidUniqueIDError) Error() string {
	return fmt.Sprintf("live: invalid unique id %q: pass the user name from the profile url", e.Input)
}

// UserOfflineError — комната есть, но эфир завершён (или забанен).
type UserOfflineError struct {
	UniqueID string
	RoomID   string
}

func (e *UserOfflineError) Error() string {
	return fmt.Sprintf("live: user %s is not live (room %s)", e.UniqueID, e.RoomID)
}

// InvalidResponseError — ответ платформы пришёл, но непригоден
// (нет курсора, не читается каталог подарков и т.п.).
type InvalidResponseError struct {
	Msg string
	Err error
}

func (e *InvalidResponseError) Error() string {
	if e.Err == nil {
		return "live: invalid response: " + e.Msg
	}
	return "live: invalid response: " + e.Msg + ": " + e.Err.Error()
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// TransportError — вебсокет не открылся или закрылся во время подключения.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("live: websocket %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
