// Package wsconfig loads and validates the gateway's startup
// configuration: the embedding HTTP server's listen/timeout settings,
// the WebSocket endpoint defaults handed to every accepted connection,
// and logging. It mirrors the teacher's internal/config package, split
// for the domain this server actually has instead of ISO downloads.
package wsconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"wsgateway/internal/constants"
	"wsgateway/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// WebSocketConfig holds the defaults applied to every accepted endpoint
// (spec.md section 3). BroadcastChannelSize is loaded and validated only;
// the Registry has no broadcast buffer and does not read it.
type WebSocketConfig struct {
	Protocols            []string      `mapstructure:"protocols"`
	CloseTimeout         time.Duration `mapstructure:"close_timeout"`
	ReceiveTimeout       time.Duration `mapstructure:"receive_timeout"`
	Autoclose            bool          `mapstructure:"autoclose"`
	Autoping             bool          `mapstructure:"autoping"`
	Heartbeat            time.Duration `mapstructure:"heartbeat"`
	MaxMsgSize           int64         `mapstructure:"max_msg_size"`
	CompressionAllowed   bool          `mapstructure:"compression_allowed"`
	BroadcastChannelSize int           `mapstructure:"broadcast_channel_size" validate:"gt=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Load reads configuration from built-in defaults, the YAML file at
// configPath (if non-empty), and environment variables (WSGATEWAY_
// prefix), in that order of increasing precedence. When configPath is set
// it also watches the file and, on each change that passes validation,
// replaces WebSocket.Protocols on the returned Config. Copies already
// taken from the Config, such as the ws.Config main builds at startup,
// keep the list they were built with.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("wsgateway")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var reloaded Config
		if err := v.Unmarshal(&reloaded); err != nil {
			logger.Default().Error("config reload failed, keeping previous protocol list", "error", err)
			return
		}
		if err := Validate(&reloaded); err != nil {
			logger.Default().Error("reloaded config failed validation, keeping previous protocol list", "error", err)
			return
		}
		cfg.WebSocket.Protocols = reloaded.WebSocket.Protocols
		logger.Default().Info("reloaded websocket protocol list", "protocols", reloaded.WebSocket.Protocols)
	})
	if configPath != "" {
		v.WatchConfig()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.read_timeout", time.Duration(constants.DefaultReadTimeoutSec)*time.Second)
	v.SetDefault("server.write_timeout", time.Duration(constants.DefaultWriteTimeoutSec)*time.Second)
	v.SetDefault("server.idle_timeout", time.Duration(constants.DefaultIdleTimeoutSec)*time.Second)
	v.SetDefault("server.shutdown_timeout", time.Duration(constants.DefaultShutdownTimeoutSec)*time.Second)
	v.SetDefault("server.cors_origins", []string{
		"http://localhost:3000",
		"http://localhost:5173",
	})

	v.SetDefault("websocket.protocols", []string{})
	v.SetDefault("websocket.close_timeout", constants.DefaultCloseTimeout)
	v.SetDefault("websocket.receive_timeout", 0)
	v.SetDefault("websocket.autoclose", true)
	v.SetDefault("websocket.autoping", true)
	v.SetDefault("websocket.heartbeat", 0)
	v.SetDefault("websocket.max_msg_size", constants.DefaultMaxMsgSize)
	v.SetDefault("websocket.compression_allowed", true)
	v.SetDefault("websocket.broadcast_channel_size", constants.DefaultBroadcastChannelSize)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
