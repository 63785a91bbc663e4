// Package config читает настройки клиента: config.yaml (./config или .)
// и переменные окружения WEBCAST_* (точка в ключе заменяется на _).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EgorLis/webcast/internal/logging"
	"github.com/spf13/viper"
)

const EnvPrefix = "WEBCAST"

type Config struct {
	Log          logging.Config     `mapstructure:"log"`
	Client       ClientConfig       `mapstructure:"client"`
	Signer       SignerConfig       `mapstructure:"signer"`
	CustomSigner CustomSignerConfig `mapstructure:"custom_signer"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
	Sink         SinkConfig         `mapstructure:"sink"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ClientConfig struct {
	ConnectWithUniqueID    bool              `mapstructure:"connect_with_unique_id"`
	ProcessInitialData     bool              `mapstructure:"process_initial_data"`
	FetchRoomInfoOnConnect bool              `mapstructure:"fetch_room_info_on_connect"`
	EnableExtendedGiftInfo bool              `mapstructure:"enable_extended_gift_info"`
	AuthenticateWS         bool              `mapstructure:"authenticate_ws"`
	DisableCloudFallback   bool              `mapstructure:"disable_cloud_fallback"`
	SignWebcastRequests    bool              `mapstructure:"sign_webcast_requests"`
	SessionID              string            `mapstructure:"session_id"`
	RegionToken            string            `mapstructure:"region_token"`
	ShowBase64             bool              `mapstructure:"show_base64"`
	SkipTypes              []string          `mapstructure:"skip_types"`
	Headers                map[string]string `mapstructure:"headers"`
	Params                 map[string]string `mapstructure:"params"`
}

type SignerConfig struct {
	BasePath string `mapstructure:"base_path"`
	APIKey   string `mapstructure:"api_key"`
}

type CustomSignerConfig struct {
	BasePath string            `mapstructure:"base_path"`
	APIKey   string            `mapstructure:"api_key"`
	Headers  map[string]string `mapstructure:"headers"`
}

type WebSocketConfig struct {
	HeartbeatInterval time.Duration     `mapstructure:"heartbeat_interval"`
	ConnectTimeout    time.Duration     `mapstructure:"connect_timeout"`
	Headers           map[string]string `mapstructure:"headers"`
	Params            map[string]string `mapstructure:"params"`
}

const (
	SinkStdout = "stdout"
	SinkRedis  = "redis"
)

type SinkConfig struct {
	Kind  string      `mapstructure:"kind"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service", "webcast")

	v.SetDefault("client.connect_with_unique_id", false)
	v.SetDefault("client.process_initial_data", true)
	v.SetDefault("client.fetch_room_info_on_connect", true)
	v.SetDefault("client.enable_extended_gift_info", false)
	v.SetDefault("client.authenticate_ws", false)
	v.SetDefault("client.disable_cloud_fallback", false)
	v.SetDefault("client.sign_webcast_requests", false)
	v.SetDefault("client.session_id", "")
	v.SetDefault("client.region_token", "")
	v.SetDefault("client.show_base64", true)
	v.SetDefault("client.skip_types", []string{})

	v.SetDefault("signer.base_path", "")
	v.SetDefault("signer.api_key", "")
	v.SetDefault("custom_signer.base_path", "")
	v.SetDefault("custom_signer.api_key", "")

	v.SetDefault("websocket.heartbeat_interval", "10s")
	v.SetDefault("websocket.connect_timeout", "20s")

	v.SetDefault("sink.kind", SinkStdout)
	v.SetDefault("sink.redis.address", "localhost:6379")
	v.SetDefault("sink.redis.password", "")
	v.SetDefault("sink.redis.db", 0)
	v.SetDefault("sink.redis.channel", "webcast:events")

	v.SetDefault("metrics.listen", "")
}

// Load читает file (если задан) или ищет config.yaml. Отсутствие файла
// не ошибка: тогда работают умолчания и окружение.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.WebSocket.HeartbeatInterval = parseDuration(v, "websocket.heartbeat_interval", 10*time.Second)
	cfg.WebSocket.ConnectTimeout = parseDuration(v, "websocket.connect_timeout", 20*time.Second)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Sink.Kind {
	case SinkStdout, SinkRedis:
	default:
		return fmt.Errorf("config: unknown sink kind %q", c.Sink.Kind)
	}
	if c.Sink.Kind == SinkRedis && c.Sink.Redis.Address == "" {
		return errors.New("config: sink.redis.address is empty")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
