package wsproto

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func baseRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestValidateComputesAcceptKey(t *testing.T) {
	res, err := Validate(baseRequest(), Options{})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// RFC 6455 section 1.3 worked example.
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if res.AcceptKey != want {
		t.Fatalf("accept key = %q, want %q", res.AcceptKey, want)
	}
	if res.ResponseHeader.Get("Sec-WebSocket-Accept") != want {
		t.Fatalf("response header accept key mismatch: %q", res.ResponseHeader.Get("Sec-WebSocket-Accept"))
	}
}

func TestValidateRejectsNonGET(t *testing.T) {
	req := baseRequest()
	req.Method = http.MethodPost
	_, err := Validate(req, Options{})
	var hre *HandshakeRejectedError
	if err == nil {
		t.Fatal("expected rejection for non-GET method")
	}
	if !assertAs(err, &hre) {
		t.Fatalf("expected HandshakeRejectedError, got %T: %v", err, err)
	}
	if hre.Status != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", hre.Status)
	}
}

func TestValidateRejectsBadUpgradeHeader(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Upgrade", "h2c")
	_, err := Validate(req, Options{})
	var hre *HandshakeRejectedError
	if !assertAs(err, &hre) || hre.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad Upgrade header, got %v", err)
	}
}

func TestValidateRejectsMissingUpgradeToken(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Connection", "keep-alive")
	_, err := Validate(req, Options{})
	var hre *HandshakeRejectedError
	if !assertAs(err, &hre) || hre.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing upgrade token, got %v", err)
	}
}

func TestValidateRejectsUnsupportedVersion(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Version", "99")
	_, err := Validate(req, Options{})
	var hre *HandshakeRejectedError
	if !assertAs(err, &hre) || hre.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported version, got %v", err)
	}
}

func TestValidateRejectsMalformedKey(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Key", "not-base64!!")
	_, err := Validate(req, Options{})
	var hre *HandshakeRejectedError
	if !assertAs(err, &hre) || hre.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed key, got %v", err)
	}
}

// TestSubprotocolClientOrderWins covers spec testable property S4: the
// client's preference order wins, not the server's.
func TestSubprotocolClientOrderWins(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Protocol", "chat, superchat")

	res, err := Validate(req, Options{Protocols: []string{"superchat", "chat"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.NegotiatedProtocol != "chat" {
		t.Fatalf("expected client-preferred protocol %q, got %q", "chat", res.NegotiatedProtocol)
	}
}

func TestSubprotocolNoOverlapLeavesNegotiatedEmpty(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Protocol", "unknown-proto")

	res, err := Validate(req, Options{Protocols: []string{"chat"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.NegotiatedProtocol != "" {
		t.Fatalf("expected no negotiated protocol, got %q", res.NegotiatedProtocol)
	}
}

func TestPermessageDeflateNegotiation(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Extensions", "permessage-deflate; client_no_context_takeover")

	res, err := Validate(req, Options{CompressionAllowed: true})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.CompressEnabled {
		t.Fatal("expected permessage-deflate to be negotiated")
	}
	if !res.NoContextTakeover {
		t.Fatal("expected no_context_takeover to be honored")
	}
}

func TestPermessageDeflateIgnoredWhenNotAllowed(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Extensions", "permessage-deflate")

	res, err := Validate(req, Options{CompressionAllowed: false})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.CompressEnabled {
		t.Fatal("expected compression to stay disabled when CompressionAllowed is false")
	}
}

func TestCanPrepareRejectsReentry(t *testing.T) {
	ok, _, err := CanPrepare(baseRequest(), Options{}, true)
	if ok || err == nil {
		t.Fatal("expected CanPrepare to reject an already-prepared endpoint")
	}
}

func TestCanPrepareAcceptsValidHandshake(t *testing.T) {
	req := baseRequest()
	req.Header.Set("Sec-WebSocket-Protocol", "chat")

	ok, protocol, err := CanPrepare(req, Options{Protocols: []string{"chat", "json"}}, false)
	if err != nil {
		t.Fatalf("CanPrepare: %v", err)
	}
	if !ok {
		t.Fatal("expected CanPrepare to accept a valid, not-yet-prepared handshake")
	}
	if protocol != "chat" {
		t.Fatalf("expected negotiated protocol %q, got %q", "chat", protocol)
	}
}

// assertAs is a tiny local errors.As wrapper to avoid importing errors
// just for these table checks.
func assertAs(err error, target **HandshakeRejectedError) bool {
	hre, ok := err.(*HandshakeRejectedError)
	if !ok {
		return false
	}
	*target = hre
	return true
}
