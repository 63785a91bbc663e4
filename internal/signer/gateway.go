package signer

import (
	"context"
	"fmt"

	"github.com/EgorLis/webcast/internal/fallback"
	"github.com/rs/zerolog"
)

// Context выбирает бэкенд подписи.
type Context int

const (
	ContextAuto      Context = iota // primary, затем secondary, если он настроен
	ContextPrimary                  // только облачный
	ContextSecondary                // только свой
)

func (c Context) String() string {
	switch c {
	case ContextPrimary:
		return "primary"
	case ContextSecondary:
		return "secondary"
	default:
		return "auto"
	}
}

// Backend — то, что умеет подписывать. *Service его реализует.
type Backend interface {
	Name() string
	Configured() bool
	Sign(ctx context.Context, req Request) (SignedRequest, error)
}

// Gateway — пара бэкендов подписи. Повторов внутри нет.
type Gateway struct {
	Primary   Backend
	Secondary Backend
	Logger    zerolog.Logger
}

func configured(b Backend) bool {
	return b != nil && b.Configured()
}

// SecondaryConfigured — есть ли куда откатываться.
func (g *Gateway) SecondaryConfigured() bool { return configured(g.Secondary) }

func (g *Gateway) Sign(ctx context.Context, c Context, req Request) (SignedRequest, error) {
	switch c {
	case ContextPrimary:
		if g.Primary == nil {
			return SignedRequest{}, &SigningError{Backend: nameCloud, Err: ErrBackendNotConfigured}
		}
		return g.Primary.Sign(ctx, req)
	case ContextSecondary:
		if !configured(g.Secondary) {
			return SignedRequest{}, &SigningError{Backend: nameCustom, Err: ErrBackendNotConfigured}
		}
		return g.Secondary.Sign(ctx, req)
	}

	if g.Primary == nil {
		return g.Sign(ctx, ContextSecondary, req)
	}
	// без secondary ошибка primary уходит наверх как есть
	if !configured(g.Secondary) {
		return g.Primary.Sign(ctx, req)
	}

	steps := []fallback.Step[SignedRequest]{
		{Name: g.Primary.Name(), Enabled: true, Run: func(ctx context.Context) (SignedRequest, error) { return g.Primary.Sign(ctx, req) }},
		{Name: g.Secondary.Name(), Enabled: true, Run: func(ctx context.Context) (SignedRequest, error) { return g.Secondary.Sign(ctx, req) }},
	}
	return fallback.Attempt(ctx, "sign", steps, func(step string, err error) {
		g.Logger.Debug().Err(err).Str("backend", step).Msg("signing failed, falling back")
	})
}

// String для логов.
func (g *Gateway) String() string {
	name := func(b Backend) string {
		if !configured(b) {
			return "-"
		}
		return b.Name()
	}
	return fmt.Sprintf("gateway(%s, %s)", name(g.Primary), name(g.Secondary))
}
