package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EgorLis/webcast/internal/fallback"
	"github.com/EgorLis/webcast/internal/signer"
	"github.com/rs/zerolog"
)

// Источники в порядке опроса.
const (
	SourceHTML   = "html"
	SourceAPI    = "api"
	SourceCloud  = "cloud"
	SourceCustom = "custom"
)

// Web — публичные страницы и API платформы (*webclient.Client).
type Web interface {
	ProfileHTML(ctx context.Context, uniqueID string) (string, error)
	APILiveRoom(ctx context.Context, uniqueID string) (json.RawMessage, error)
}

// Backend — облачный или свой сервис (*signer.Service).
type Backend interface {
	Name() string
	Configured() bool
	RoomID(ctx context.Context, uniqueID string) (*signer.RoomIDResponse, error)
	RoomInfo(ctx context.Context, uniqueID string) (*signer.RoomInfoResponse, error)
}

type Config struct {
	Web    Web
	Cloud  Backend
	Custom Backend
	// DisableCloudFallback — облачный источник не опрашивается вовсе.
	DisableCloudFallback bool
	Logger               zerolog.Logger
	// OnSourceError вызывается на каждую неудачу источника.
	OnSourceError func(source string, err error)
}

// Resolver находит комнату по имени пользователя, перебирая источники.
type Resolver struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg, log: cfg.Logger}
}

func configured(b Backend) bool { return b != nil && b.Configured() }

func (r *Resolver) sourceFailed(source string, err error) {
	r.log.Debug().Err(err).Str("source", source).Msg("room source failed")
	if r.cfg.OnSourceError != nil {
		r.cfg.OnSourceError(source, err)
	}
}

type sources[T any] struct {
	html, api, cloud, custom func(ctx context.Context) (T, error)
}

func chain[T any](ctx context.Context, r *Resolver, op string, s sources[T]) (T, error) {
	steps := []fallback.Step[T]{
		{Name: SourceHTML, Enabled: r.cfg.Web != nil, Run: s.html},
		{Name: SourceAPI, Enabled: r.cfg.Web != nil, Run: s.api},
		{Name: SourceCloud, Enabled: !r.cfg.DisableCloudFallback && configured(r.cfg.Cloud), Run: s.cloud},
		{Name: SourceCustom, Enabled: configured(r.cfg.Custom), Run: s.custom},
	}
	return fallback.Attempt(ctx, op, steps, r.sourceFailed)
}

// ========================= операции =========================

func (r *Resolver) RoomID(ctx context.Context, uniqueID string) (string, error) {
	return chain(ctx, r, "resolve room id", sources[string]{
		html: func(ctx context.Context) (string, error) {
			info, _, err := r.fromHTML(ctx, uniqueID)
			if err != nil {
				return "", err
			}
			if info.User.RoomID == "" {
				return "", ErrNoRoomID
			}
			return info.User.RoomID, nil
		},
		api: func(ctx context.Context) (string, error) {
			info, _, err := r.fromAPI(ctx, uniqueID)
			if err != nil {
				return "", err
			}
			if info.User.RoomID == "" {
				return "", ErrNoRoomID
			}
			return info.User.RoomID, nil
		},
		cloud:  func(ctx context.Context) (string, error) { return backendRoomID(ctx, r.cfg.Cloud, uniqueID) },
		custom: func(ctx context.Context) (string, error) { return backendRoomID(ctx, r.cfg.Custom, uniqueID) },
	})
}

func (r *Resolver) RoomInfo(ctx context.Context, uniqueID string) (*RoomSnapshot, error) {
	return chain(ctx, r, "fetch room info", sources[*RoomSnapshot]{
		html: func(ctx context.Context) (*RoomSnapshot, error) {
			info, raw, err := r.fromHTML(ctx, uniqueID)
			if err != nil {
				return nil, err
			}
			return info.snapshot(SourceHTML, raw)
		},
		api: func(ctx context.Context) (*RoomSnapshot, error) {
			info, raw, err := r.fromAPI(ctx, uniqueID)
			if err != nil {
				return nil, err
			}
			return info.snapshot(SourceAPI, raw)
		},
		cloud:  func(ctx context.Context) (*RoomSnapshot, error) { return backendRoomInfo(ctx, r.cfg.Cloud, uniqueID) },
		custom: func(ctx context.Context) (*RoomSnapshot, error) { return backendRoomInfo(ctx, r.cfg.Custom, uniqueID) },
	})
}

// IsLive — идёт ли сейчас эфир (любой статус, кроме "завершён").
func (r *Resolver) IsLive(ctx context.Context, uniqueID string) (bool, error) {
	fromInfo := func(info *liveRoomUserInfo) (bool, error) {
		st, ok := info.status()
		if !ok {
			return false, ErrNoStatus
		}
		return st != StatusEnded, nil
	}
	return chain(ctx, r, "fetch live status", sources[bool]{
		html: func(ctx context.Context) (bool, error) {
			info, _, err := r.fromHTML(ctx, uniqueID)
			if err != nil {
				return false, err
			}
			return fromInfo(info)
		},
		api: func(ctx context.Context) (bool, error) {
			info, _, err := r.fromAPI(ctx, uniqueID)
			if err != nil {
				return false, err
			}
			return fromInfo(info)
		},
		cloud:  func(ctx context.Context) (bool, error) { return backendIsLive(ctx, r.cfg.Cloud, uniqueID) },
		custom: func(ctx context.Context) (bool, error) { return backendIsLive(ctx, r.cfg.Custom, uniqueID) },
	})
}

// ========================= источники =========================

func (r *Resolver) fromHTML(ctx context.Context, uniqueID string) (*liveRoomUserInfo, []byte, error) {
	html, err := r.cfg.Web.ProfileHTML(ctx, uniqueID)
	if err != nil {
		return nil, nil, err
	}
	return parseProfileHTML(html)
}

func (r *Resolver) fromAPI(ctx context.Context, uniqueID string) (*liveRoomUserInfo, []byte, error) {
	raw, err := r.cfg.Web.APILiveRoom(ctx, uniqueID)
	if err != nil {
		return nil, nil, err
	}
	info, err := parseAPILive(raw)
	return info, raw, err
}

// checkBackend — 401/402/403 и !ok в теле превращаются в ошибку.
func checkBackend(b Backend, code int, ok bool, msg string) error {
	if signer.IsPermissionCode(code) {
		return fmt.Errorf("%s: %w (%d): check API key and plan, or disable this fallback", b.Name(), signer.ErrPermission, code)
	}
	if !ok {
		if msg == "" {
			msg = fmt.Sprintf("code %d", code)
		}
		return fmt.Errorf("%s: %s", b.Name(), msg)
	}
	return nil
}

func backendRoomID(ctx context.Context, b Backend, uniqueID string) (string, error) {
	resp, err := b.RoomID(ctx, uniqueID)
	if err != nil {
		return "", err
	}
	if err := checkBackend(b, resp.Code, resp.OK, resp.Message); err != nil {
		return "", err
	}
	if resp.RoomID == "" {
		return "", ErrNoRoomID
	}
	return resp.RoomID, nil
}

func backendIsLive(ctx context.Context, b Backend, uniqueID string) (bool, error) {
	resp, err := b.RoomID(ctx, uniqueID)
	if err != nil {
		return false, err
	}
	if err := checkBackend(b, resp.Code, resp.OK, resp.Message); err != nil {
		return false, err
	}
	if resp.Code != 200 {
		return false, fmt.Errorf("%s: %w", b.Name(), ErrNoStatus)
	}
	return resp.IsLive, nil
}

func backendRoomInfo(ctx context.Context, b Backend, uniqueID string) (*RoomSnapshot, error) {
	resp, err := b.RoomInfo(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	if err := checkBackend(b, resp.Code, resp.OK, resp.Message); err != nil {
		return nil, err
	}
	if len(resp.RoomInfo) == 0 {
		return nil, errors.New(b.Name() + ": room_info missing")
	}
	return parseRoomInfo(b.Name(), resp.RoomInfo)
}
