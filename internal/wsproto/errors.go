package wsproto

import (
	"fmt"
	"net/http"
	"strings"
)

// HandshakeRejectedError reports a malformed or unsupported upgrade
// request. The caller converts it into an HTTP response; the endpoint
// never transitions to Open state (spec.md section 7).
type HandshakeRejectedError struct {
	Status int
	Reason string
	// Allow lists the methods for a 405 rejection (spec.md section 4.A
	// rule 1: "405 Method Not Allowed with allowed methods = {GET}").
	Allow []string
}

func (e *HandshakeRejectedError) Error() string {
	return fmt.Sprintf("websocket handshake rejected (%d): %s", e.Status, e.Reason)
}

// ApplyHeaders sets any headers the rejection requires (e.g. Allow on a
// 405), so callers don't need to know HandshakeRejectedError's shape.
func (e *HandshakeRejectedError) ApplyHeaders(header http.Header) {
	if len(e.Allow) > 0 {
		header.Set("Allow", strings.Join(e.Allow, ", "))
	}
}
