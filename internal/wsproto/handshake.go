// Package wsproto implements the server-side RFC 6455 opening handshake:
// header validation, the Sec-WebSocket-Accept token, and subprotocol /
// permessage-deflate negotiation. It has no knowledge of the framing layer
// or of the Endpoint state machine built on top of it (internal/ws).
//
// Grounded on jason-cq-nats-server's server/websocket.go wsUpgrade (the
// point-by-point RFC 6455 section 4.2.1 validation order) and aiohttp's
// web_ws.py _handshake (subprotocol loop order, extension header emission).
package wsproto

import (
	"crypto/sha1" //nolint:gosec // RFC 6455 fixes SHA-1 for the accept token.
	"encoding/base64"
	"net/http"
	"strings"

	"wsgateway/internal/constants"
	"wsgateway/internal/logger"
)

// Options configures handshake negotiation for one server endpoint.
type Options struct {
	// Protocols is the server's subprotocol preference list. Negotiation
	// walks the CLIENT's offered order and picks the first one present in
	// this set (spec.md section 4.A rule 6 / testable property S4) — this
	// is deliberately NOT the order gorilla/websocket's own Upgrader uses.
	Protocols []string
	// CompressionAllowed gates whether permessage-deflate may be
	// negotiated at all; when false the Sec-WebSocket-Extensions header is
	// never inspected.
	CompressionAllowed bool
}

// Result is the outcome of a successful handshake validation.
type Result struct {
	AcceptKey          string
	NegotiatedProtocol string
	CompressEnabled    bool
	NoContextTakeover  bool
	// ResponseHeader carries every header the 101 response must include,
	// beyond status and the caller's own framing-layer headers.
	ResponseHeader http.Header
}

// Validate runs the ordered RFC 6455 section 4.2.1 checks against r and, on
// success, negotiates subprotocol and compression. Each failure produces a
// distinct *HandshakeRejectedError with the HTTP status the caller should
// respond with.
func Validate(r *http.Request, opts Options) (Result, error) {
	// Rule 1: method.
	if r.Method != http.MethodGet {
		return Result{}, &HandshakeRejectedError{
			Status: http.StatusMethodNotAllowed,
			Reason: "request method must be GET",
			Allow:  []string{http.MethodGet},
		}
	}

	// Rule 2: Upgrade header, case-insensitive trimmed equality.
	if !strings.EqualFold(strings.TrimSpace(r.Header.Get("Upgrade")), "websocket") {
		return Result{}, &HandshakeRejectedError{
			Status: http.StatusBadRequest,
			Reason: "Upgrade header must equal \"websocket\"",
		}
	}

	// Rule 3: Connection header must contain the "upgrade" token.
	if !headerContainsToken(r.Header, "Connection", "upgrade") {
		return Result{}, &HandshakeRejectedError{
			Status: http.StatusBadRequest,
			Reason: "Connection header must contain \"upgrade\"",
		}
	}

	// Rule 4: accepted version.
	version := r.Header.Get("Sec-WebSocket-Version")
	if !contains(constants.AcceptedVersions, version) {
		return Result{}, &HandshakeRejectedError{
			Status: http.StatusBadRequest,
			Reason: "unsupported Sec-WebSocket-Version: " + version,
		}
	}

	// Rule 5: key must base64-decode to exactly 16 bytes.
	key := r.Header.Get("Sec-WebSocket-Key")
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(decoded) != 16 {
		return Result{}, &HandshakeRejectedError{
			Status: http.StatusBadRequest,
			Reason: "invalid Sec-WebSocket-Key",
		}
	}

	res := Result{
		AcceptKey:      acceptKey(key),
		ResponseHeader: http.Header{},
	}
	res.ResponseHeader.Set("Upgrade", "websocket")
	res.ResponseHeader.Set("Connection", "upgrade")
	res.ResponseHeader.Set("Sec-WebSocket-Accept", res.AcceptKey)

	// Rule 6: subprotocol, client order wins.
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		offered := splitTrimmed(proto)
		negotiated := selectProtocol(offered, opts.Protocols)
		if negotiated == "" {
			logger.Default().Warn("no overlapping websocket subprotocol",
				"offered", offered, "server_protocols", opts.Protocols)
		} else {
			res.NegotiatedProtocol = negotiated
			res.ResponseHeader.Set("Sec-WebSocket-Protocol", negotiated)
		}
	}

	// Rule 7: permessage-deflate extension negotiation. Parse errors
	// silently disable compression; they never fail the handshake.
	if opts.CompressionAllowed {
		if ext := r.Header.Get("Sec-WebSocket-Extensions"); ext != "" {
			compress, noContextTakeover := parsePerMessageDeflate(ext)
			if compress {
				res.CompressEnabled = true
				res.NoContextTakeover = noContextTakeover
				res.ResponseHeader.Set("Sec-WebSocket-Extensions", formatPerMessageDeflate(noContextTakeover))
			}
		}
	}

	return res, nil
}

// CanPrepare runs Validate without any side effects beyond the check
// itself, mirroring aiohttp's can_prepare / WebSocketReady. already is the
// one side effect it still rejects: a write surface must not already exist.
func CanPrepare(r *http.Request, opts Options, already bool) (ok bool, protocol string, err error) {
	if already {
		return false, "", &HandshakeRejectedError{
			Status: http.StatusInternalServerError,
			Reason: "endpoint already prepared",
		}
	}
	res, err := Validate(r, opts)
	if err != nil {
		return false, "", err
	}
	return true, res.NegotiatedProtocol, nil
}

func acceptKey(key string) string {
	h := sha1.New() //nolint:gosec // see Validate's import comment
	h.Write([]byte(key))
	h.Write([]byte(constants.WebSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func headerContainsToken(h http.Header, name, token string) bool {
	for _, line := range h.Values(name) {
		for _, part := range strings.Split(line, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// selectProtocol walks the client's offered order and returns the first one
// present in server. This order matters: testable property S4 requires
// client preference to win over server preference order.
func selectProtocol(offered, server []string) string {
	for _, o := range offered {
		for _, s := range server {
			if o == s {
				return o
			}
		}
	}
	return ""
}

// parsePerMessageDeflate looks for a "permessage-deflate" token in the
// Sec-WebSocket-Extensions header and reports whether the client's context
// takeover parameters require the server to disable context takeover on
// its own compression window.
func parsePerMessageDeflate(header string) (enabled bool, noContextTakeover bool) {
	for _, extension := range strings.Split(header, ",") {
		params := strings.Split(extension, ";")
		if len(params) == 0 {
			continue
		}
		name := strings.TrimSpace(params[0])
		if !strings.EqualFold(name, "permessage-deflate") {
			continue
		}
		enabled = true
		for _, p := range params[1:] {
			p = strings.TrimSpace(p)
			if strings.EqualFold(p, "client_no_context_takeover") ||
				strings.EqualFold(p, "server_no_context_takeover") {
				noContextTakeover = true
			}
		}
		return enabled, noContextTakeover
	}
	return false, false
}

func formatPerMessageDeflate(noContextTakeover bool) string {
	if noContextTakeover {
		return "permessage-deflate; server_no_context_takeover; client_no_context_takeover"
	}
	return "permessage-deflate"
}
