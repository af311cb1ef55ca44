package wsconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"wsgateway/internal/validation"
)

var structValidator = validator.New()

// Validate runs struct-tag validation (go-playground/validator) for the
// checks that map cleanly to a tag, then a second pass of checks that
// don't — cross-field and per-element rules — accumulated with
// validation.ValidationErrors so every problem is reported at once,
// the same pattern the teacher used for ISO request validation.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	errs := &validation.ValidationErrors{}

	if cfg.WebSocket.Heartbeat < 0 {
		errs.Add("websocket.heartbeat", "must not be negative")
	}
	if cfg.WebSocket.Heartbeat > 0 && cfg.WebSocket.CloseTimeout > 0 && cfg.WebSocket.Heartbeat >= cfg.WebSocket.CloseTimeout {
		errs.Add("websocket.heartbeat", "must be shorter than close_timeout or the connection never survives a close handshake")
	}
	if cfg.WebSocket.MaxMsgSize < 0 {
		errs.Add("websocket.max_msg_size", "must not be negative (0 disables the cap)")
	}
	for i, proto := range cfg.WebSocket.Protocols {
		if proto == "" {
			errs.Add(fmt.Sprintf("websocket.protocols[%d]", i), "must not be empty")
		}
	}
	for i, origin := range cfg.Server.CORSOrigins {
		if origin == "" {
			errs.Add(fmt.Sprintf("server.cors_origins[%d]", i), "must not be empty")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
