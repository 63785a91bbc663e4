package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EgorLis/webcast/internal/config"
	"github.com/EgorLis/webcast/internal/live"
	"github.com/EgorLis/webcast/internal/logging"
	"github.com/EgorLis/webcast/internal/metrics"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var cfgFile string

	root := &cobra.Command{
		Use:           "webcast",
		Short:         "Live stream event client",
		Long:          "webcast connects to a broadcaster's live room and streams audience events (chat, gifts, likes, ...) as JSON lines or to Redis.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config/config.yaml or ./config.yaml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		logging.Init(cfg.Log)
		return cfg, nil
	}

	root.AddCommand(
		watchCmd(load),
		liveCmd(load),
		infoCmd(load),
		giftsCmd(load),
		sendCmd(load),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

type loader func() (*config.Config, error)

// connectionOptions переносит настройки из конфига в live.Options.
func connectionOptions(cfg *config.Config, m *metrics.Metrics) live.Options {
	opts := live.DefaultOptions()
	cc := cfg.Client

	opts.ConnectWithUniqueID = cc.ConnectWithUniqueID
	opts.ProcessInitialData = cc.ProcessInitialData
	opts.FetchRoomInfoOnConnect = cc.FetchRoomInfoOnConnect
	opts.EnableExtendedGiftInfo = cc.EnableExtendedGiftInfo
	opts.AuthenticateWS = cc.AuthenticateWS
	opts.DisableCloudFallback = cc.DisableCloudFallback
	opts.SignWebcastRequests = cc.SignWebcastRequests
	opts.SessionID = cc.SessionID
	opts.RegionToken = cc.RegionToken
	opts.ShowBase64 = cc.ShowBase64
	opts.SkipTypes = cc.SkipTypes
	opts.WebClientHeaders = cc.Headers
	opts.WebClientParams = cc.Params

	opts.SignAPIKey = cfg.Signer.APIKey
	opts.SignBasePath = cfg.Signer.BasePath
	if cs := cfg.CustomSigner; cs.BasePath != "" {
		opts.CustomSigner = &live.CustomSigner{BasePath: cs.BasePath, APIKey: cs.APIKey, Headers: cs.Headers}
	}

	opts.HeartbeatInterval = cfg.WebSocket.HeartbeatInterval
	opts.ConnectTimeout = cfg.WebSocket.ConnectTimeout
	opts.WSClientHeaders = cfg.WebSocket.Headers
	opts.WSClientParams = cfg.WebSocket.Params

	l := logging.L()
	opts.Logger = &l
	opts.Metrics = m
	return opts
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
