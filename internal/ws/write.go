package ws

import "github.com/goccy/go-json"

// Ping sends a ping control frame (spec.md section 4.C). The payload is
// optional and never interpreted.
func (e *Endpoint) Ping(payload []byte) error {
	if err := e.requirePrepared("ping"); err != nil {
		return err
	}
	return e.writer.Ping(payload)
}

// Pong sends an unsolicited pong frame. Autoping-driven replies to peer
// pings go through the same writer call from receive.go; this is the
// caller-invoked form.
func (e *Endpoint) Pong(payload []byte) error {
	if err := e.requirePrepared("pong"); err != nil {
		return err
	}
	return e.writer.Pong(payload)
}

// SendText sends a text data frame. compress, when non-nil, overrides the
// negotiated permessage-deflate setting for this call only (spec.md section
// 4.C: "compress: override the connection default for this frame").
func (e *Endpoint) SendText(text string, compress *bool) error {
	if err := e.requirePrepared("send_text"); err != nil {
		return err
	}
	return e.writer.Send([]byte(text), false, compress)
}

// SendBinary sends a binary data frame.
func (e *Endpoint) SendBinary(data []byte, compress *bool) error {
	if err := e.requirePrepared("send_binary"); err != nil {
		return err
	}
	return e.writer.Send(data, true, compress)
}

// SendJSON marshals v with the endpoint's configured encoder (default
// github.com/goccy/go-json, spec.md section 6) and sends it as a text
// frame.
func (e *Endpoint) SendJSON(v interface{}, compress *bool) error {
	if err := e.requirePrepared("send_json"); err != nil {
		return err
	}
	enc := e.cfg.DefaultJSONEncoder
	if enc == nil {
		enc = json.Marshal
	}
	data, err := enc(v)
	if err != nil {
		return &TransportError{Op: "send_json", Err: err}
	}
	return e.writer.Send(data, false, compress)
}

// Write always fails: spec.md section 4.C rule 4 reserves write for a raw
// frame surface the framing layer doesn't expose, and section 2's
// Non-goals exclude framing-level fragmentation strategies entirely. Unlike
// requirePrepared's checks, this failure has nothing to do with handshake or
// close state — the endpoint may be fully prepared and still reject Write.
func (e *Endpoint) Write(_ []byte) error {
	return &NotSupportedError{Op: "write"}
}

func (e *Endpoint) requirePrepared(op string) error {
	if e.writer == nil {
		return &NotPreparedError{Op: op}
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return &NotPreparedError{Op: op}
	}
	return nil
}
