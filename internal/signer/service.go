package signer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultCloudBase = "https://tiktok.eulerstream.com"
	defaultTimeout   = 10 * time.Second

	nameCloud  = "cloud"
	nameCustom = "custom"
)

// Config: параметры одного бэкенда подписи.
type Config struct {
	BasePath string
	APIKey   string
	Headers  map[string]string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Service: REST-бэкенд подписи: облачный (managed) или свой (custom).
type Service struct {
	name string
	base string
	http *resty.Client
	log  zerolog.Logger
}

// NewCloud: облачный сервис; пустой BasePath заменяется адресом по умолчанию.
func NewCloud(cfg Config) *Service {
	if strings.TrimSpace(cfg.BasePath) == "" {
		cfg.BasePath = DefaultCloudBase
	}
	return newService(nameCloud, cfg)
}

// NewCustom: собственный сервер подписи. Без BasePath он считается
// не настроенным, и все цепочки его пропускают.
func NewCustom(cfg Config) *Service {
	return newService(nameCustom, cfg)
}

func newService(name string, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/")
	c := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetHeader("x-api-key", cfg.APIKey)
	}
	c.SetHeaders(cfg.Headers)

	return &Service{
		name: name,
		base: base,
		http: c,
		log:  cfg.Logger.With().Str("backend", name).Logger(),
	}
}

func (s *Service) Name() string { return s.name }

// Configured: задан ли адрес сервиса.
func (s *Service) Configured() bool { return s != nil && s.base != "" }

// ========================= подпись =========================

// Request: что подписываем.
type Request struct {
	URL         string
	Method      string
	UserAgent   string
	SessionID   string
	RegionToken string // tt-target-idc
}

// SignedRequest: подписанный URL и user-agent, с которым его надо слать.
type SignedRequest struct {
	URL       string
	UserAgent string
}

type signBody struct {
	URL         string `json:"url"`
	Method      string `json:"method"`
	UserAgent   string `json:"userAgent,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	TTTargetIdc string `json:"ttTargetIdc,omitempty"`
}

type signResp struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response struct {
		SignedURL string `json:"signedUrl"`
		UserAgent string `json:"userAgent"`
	} `json:"response"`
}

// Sign подписывает GET/POST запрос. Любая ошибка — *SigningError.
func (s *Service) Sign(ctx context.Context, req Request) (SignedRequest, error) {
	if !s.Configured() {
		return SignedRequest{}, s.signErr(ErrBackendNotConfigured)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return SignedRequest{}, s.signErr(fmt.Errorf("%w: %s", ErrMethodNotSignable, req.Method))
	}

	var out signResp
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(signBody{
			URL:         req.URL,
			Method:      method,
			UserAgent:   req.UserAgent,
			SessionID:   req.SessionID,
			TTTargetIdc: req.RegionToken,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/webcast/sign_url")
	if err != nil {
		return SignedRequest{}, s.signErr(err)
	}
	if resp.IsError() {
		return SignedRequest{}, s.signErr(statusErr(resp.StatusCode(), out.Message))
	}
	if out.Code != 0 && out.Code != http.StatusOK {
		return SignedRequest{}, s.signErr(statusErr(out.Code, out.Message))
	}
	if out.Response.SignedURL == "" {
		return SignedRequest{}, s.signErr(errors.New("empty signed url"))
	}
	s.log.Debug().Str("method", method).Msg("request signed")
	return SignedRequest{URL: out.Response.SignedURL, UserAgent: out.Response.UserAgent}, nil
}

func (s *Service) signErr(err error) error {
	return &SigningError{Backend: s.name, Err: err}
}

// ========================= резолв комнаты =========================

// RoomIDResponse: ответ /webcast/room_id. Code дублирует HTTP-статус,
// если сервис его не прислал.
type RoomIDResponse struct {
	Code    int    `json:"code"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
	IsLive  bool   `json:"is_live"`
}

func (s *Service) RoomID(ctx context.Context, uniqueID string) (*RoomIDResponse, error) {
	var out RoomIDResponse
	code, err := s.getJSON(ctx, "/webcast/room_id", map[string]string{"uniqueId": uniqueID}, &out)
	if err != nil {
		return nil, err
	}
	if out.Code == 0 {
		out.Code = code
	}
	return &out, nil
}

// RoomInfoResponse: ответ /webcast/room_info; RoomInfo в формате
// webcast/room/info.
type RoomInfoResponse struct {
	Code     int             `json:"code"`
	OK       bool            `json:"ok"`
	Message  string          `json:"message"`
	RoomInfo json.RawMessage `json:"room_info"`
}

func (s *Service) RoomInfo(ctx context.Context, uniqueID string) (*RoomInfoResponse, error) {
	var out RoomInfoResponse
	code, err := s.getJSON(ctx, "/webcast/room_info", map[string]string{"uniqueId": uniqueID}, &out)
	if err != nil {
		return nil, err
	}
	if out.Code == 0 {
		out.Code = code
	}
	return &out, nil
}

// getJSON читает JSON и при ошибочном статусе: сервис присылает code/message
// в теле, решение принимает вызывающий.
func (s *Service) getJSON(ctx context.Context, path string, q map[string]string, out any) (int, error) {
	if !s.Configured() {
		return 0, fmt.Errorf("%s: %w", s.name, ErrBackendNotConfigured)
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(q).
		SetResult(out).
		SetError(out).
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", s.name, path, err)
	}
	return resp.StatusCode(), nil
}

// ========================= подписанный вебсокет =========================

// WebSocketParams: параметры запроса /webcast/fetch.
type WebSocketParams struct {
	RoomID      string
	UniqueID    string
	SessionID   string
	RegionToken string
	UseMobile   bool
}

// FetchSignedWebSocket возвращает сырые байты ProtoMessageFetchResult
// с адресом вебсокета, курсором и начальной пачкой сообщений.
func (s *Service) FetchSignedWebSocket(ctx context.Context, p WebSocketParams) ([]byte, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%s: %w", s.name, ErrBackendNotConfigured)
	}
	if p.RoomID == "" && p.UniqueID == "" {
		return nil, fmt.Errorf("%s: %w: room id or unique id required", s.name, ErrIdentityParameter)
	}
	if p.SessionID != "" && p.RegionToken == "" {
		return nil, fmt.Errorf("%s: %w: region token must be set with session id", s.name, ErrIdentityParameter)
	}

	q := map[string]string{"client": "ttlive-go"}
	setIf(q, "room_id", p.RoomID)
	setIf(q, "unique_id", p.UniqueID)
	setIf(q, "session_id", p.SessionID)
	setIf(q, "tt_target_idc", p.RegionToken)
	if p.UseMobile {
		q["use_mobile"] = "true"
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(q).
		SetHeader("Accept", "application/x-protobuf").
		Get("/webcast/fetch")
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", s.name, err)
	}
	if resp.IsError() {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(resp.Body(), &e)
		return nil, fmt.Errorf("%s fetch: %w", s.name, statusErr(resp.StatusCode(), e.Message))
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("%s fetch: empty body", s.name)
	}
	s.log.Debug().Int("bytes", len(resp.Body())).Msg("signed websocket fetched")
	return resp.Body(), nil
}

// ========================= чат =========================

type ChatPayload struct {
	RoomID      string `json:"roomId"`
	Content     string `json:"content"`
	SessionID   string `json:"sessionId,omitempty"`
	RegionToken string `json:"ttTargetIdc,omitempty"`
}

type ChatResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SendRoomChat отправляет сообщение в чат комнаты. 401/403 означают,
// что тарифу ключа это недоступно (*PremiumFeatureError).
func (s *Service) SendRoomChat(ctx context.Context, p ChatPayload) (*ChatResponse, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%s: %w", s.name, ErrBackendNotConfigured)
	}
	if p.SessionID != "" && p.RegionToken == "" {
		return nil, fmt.Errorf("%s: %w: region token must be set with session id", s.name, ErrIdentityParameter)
	}

	var out ChatResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&out).
		SetError(&out).
		Post("/webcast/chat")
	if err != nil {
		return nil, fmt.Errorf("%s chat: %w", s.name, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &out, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &PremiumFeatureError{
			Backend: s.name,
			Message: out.Message,
			Raw:     resp.String(),
		}
	default:
		msg := out.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%s chat: failed to send: %s (status %d)", s.name, msg, resp.StatusCode())
	}
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func statusErr(code int, msg string) error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	if IsPermissionCode(code) {
		return fmt.Errorf("%w: %d %s", ErrPermission, code, msg)
	}
	return fmt.Errorf("status %d: %s", code, msg)
}

// IsPermissionCode: 401/402/403: ключа нет, он недействителен или
// тариф не позволяет.
func IsPermissionCode(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusPaymentRequired || code == http.StatusForbidden
}
