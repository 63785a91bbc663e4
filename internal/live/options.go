package live

import (
	"context"
	"time"

	"github.com/EgorLis/webcast/internal/codec"
	"github.com/EgorLis/webcast/internal/metrics"
	"github.com/EgorLis/webcast/internal/signer"
	"github.com/rs/zerolog"
)

const (
	DefaultConnectTimeout = 20 * time.Second
	// MinWaitInterval — WaitUntilLive не опрашивает чаще.
	MinWaitInterval = 30 * time.Second
)

// SignedWebSocketProvider подменяет получение подписанного вебсокета:
// возвращает начальный FetchResult (адрес, курсор, internal_ext).
type SignedWebSocketProvider func(ctx context.Context, p signer.WebSocketParams) (*codec.FetchResult, error)

// CustomSigner — свой сервис подписи (вторичный бэкенд).
type CustomSigner struct {
	BasePath string
	APIKey   string
	Headers  map[string]string
}

type Options struct {
	// ConnectWithUniqueID — не искать room id заранее, а отдать подписчику
	// вебсокета имя пользователя.
	ConnectWithUniqueID    bool
	ProcessInitialData     bool
	FetchRoomInfoOnConnect bool
	EnableExtendedGiftInfo bool

	SessionID   string
	RegionToken string
	// AuthenticateWS — передавать сессию при получении подписанного вебсокета.
	AuthenticateWS bool
	UseMobile      bool

	DisableCloudFallback bool
	SignAPIKey           string
	SignBasePath         string // пусто: signer.DefaultCloudBase
	CustomSigner         *CustomSigner
	// SignWebcastRequests: подписывать room/info и gift/list
	// (облачный сервис, затем свой).
	SignWebcastRequests  bool

	WebHost          string
	WebcastHost      string
	WebClientHeaders map[string]string
	WebClientParams  map[string]string
	WSClientHeaders  map[string]string
	WSClientParams   map[string]string

	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration

	// SkipTypes — типы сообщений, которые не декодируются.
	SkipTypes  []string
	// ShowBase64: сырые байты в ошибках декодирования (DefaultOptions включает).
	ShowBase64 bool

	SignedWebSocketProvider SignedWebSocketProvider

	Logger  *zerolog.Logger // nil: logging.L()
	Metrics *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{
		ProcessInitialData:     true,
		FetchRoomInfoOnConnect: true,
		ConnectTimeout:         DefaultConnectTimeout,
		ShowBase64:             true,
	}
}
