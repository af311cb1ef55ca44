package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wsgateway/internal/logger"
	"wsgateway/internal/wsproto"
)

// Server turns accepted HTTP upgrade requests into registered Endpoints,
// gluing the handshake validator (component A) and the gorilla-backed
// transport onto the Endpoint state machine (components B-F). It
// generalizes the teacher's ServeWS/upgrader pair, which hard-wired one
// broadcast-only Hub, into a reusable accept path.
type Server struct {
	cfg      Config
	registry *Registry

	// OnAccept, if set, runs in its own goroutine once an Endpoint is
	// registered — the embedding application's place to drive the
	// connection's Receive loop.
	OnAccept func(*Endpoint)
}

// NewServer builds a Server that applies cfg to every accepted
// connection and tracks them in registry.
func NewServer(cfg Config, registry *Registry) *Server {
	return &Server{cfg: cfg, registry: registry}
}

// Handle performs the handshake and, on success, upgrades the connection
// and hands back a live Endpoint via OnAccept. On rejection it writes the
// HTTP error response itself and never touches the connection further
// (spec.md section 4.A / section 7: handshake errors never transition the
// endpoint to Open).
func (s *Server) Handle(c *gin.Context) {
	opts := wsproto.Options{
		Protocols:          s.cfg.Protocols,
		CompressionAllowed: s.cfg.CompressionAllowed,
	}

	result, err := wsproto.Validate(c.Request, opts)
	if err != nil {
		var hre *wsproto.HandshakeRejectedError
		if errors.As(err, &hre) {
			hre.ApplyHeaders(c.Writer.Header())
			c.String(hre.Status, hre.Reason)
			return
		}
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	// gorilla's own Upgrader.selectSubprotocol walks the SERVER's
	// Subprotocols list outer-loop / client's inner-loop, which would
	// pick client-subprotocol-list order wrong relative to spec.md
	// section 4.A rule 6 (client preference wins). Leaving Subprotocols
	// nil and pre-seeding responseHeader makes gorilla fall back to
	// ResponseHeader.Get("Sec-WebSocket-Protocol") instead of running
	// its own (wrongly-ordered) negotiation.
	upgrader := websocket.Upgrader{
		Subprotocols:      nil,
		EnableCompression: result.CompressEnabled,
		CheckOrigin:       func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, result.ResponseHeader)
	if err != nil {
		logger.Default().Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.New()
	transport := newGorillaTransport(conn, s.cfg.MaxMsgSize)
	ep := newEndpoint(id, s.cfg, transport, transport, result.NegotiatedProtocol, result.CompressEnabled, result.NoContextTakeover, transport)

	s.registry.Register(ep)
	if s.OnAccept != nil {
		go s.OnAccept(ep)
	}
}
