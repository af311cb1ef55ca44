package ws

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"wsgateway/internal/constants"
)

func TestReceiveReturnsDeliveredTextMessage(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{}, ft, ft, "", false, false, nil)
	ft.deliver(Message{Type: MsgText, Data: []byte("hi")})

	msg, err := ep.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Type != MsgText || string(msg.Data) != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestConcurrentReceiveFails(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{}, ft, ft, "", false, false, nil)

	go func() {
		_, _ = ep.Receive()
	}()
	time.Sleep(20 * time.Millisecond) // let the goroutine install e.waiting

	_, err := ep.Receive()
	var cre *ConcurrentReceiveError
	if !errors.As(err, &cre) {
		t.Fatalf("expected ConcurrentReceiveError, got %v", err)
	}
	ft.deliver(Message{Type: MsgText, Data: []byte("unblock")})
}

func TestReceiveAutopingSwallowsPingAndPong(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{Autoping: true}, ft, ft, "", false, false, nil)
	ft.deliver(Message{Type: MsgPing, Data: []byte("payload")})
	ft.deliver(Message{Type: MsgPong})
	ft.deliver(Message{Type: MsgText, Data: []byte("after")})

	msg, err := ep.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Type != MsgText {
		t.Fatalf("expected ping/pong to be swallowed, got %v", msg.Type)
	}
	if len(ft.pongs) != 1 || string(ft.pongs[0]) != "payload" {
		t.Fatalf("expected autopong reply, got %+v", ft.pongs)
	}
}

func TestReceiveWithoutAutopingReturnsPing(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{Autoping: false}, ft, ft, "", false, false, nil)
	ft.deliver(Message{Type: MsgPing, Data: []byte("x")})

	msg, err := ep.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Type != MsgPing {
		t.Fatalf("expected PING returned to caller, got %v", msg.Type)
	}
	if len(ft.pongs) != 0 {
		t.Fatalf("expected no autopong, got %+v", ft.pongs)
	}
}

func TestReceiveEOFClosesNormally(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{CloseTimeout: 10 * time.Millisecond}, ft, ft, "", false, false, nil)
	ft.deliver(Message{Type: MsgError, Err: io.EOF})

	msg, err := ep.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Type != MsgClosed {
		t.Fatalf("expected synthetic CLOSED, got %v", msg.Type)
	}
	if !ep.Closed() || ep.CloseCode() != constants.CloseNormalClosure {
		t.Fatalf("expected closed with code %d, got closed=%v code=%d", constants.CloseNormalClosure, ep.Closed(), ep.CloseCode())
	}
	if ft.closeCalls != 1 {
		t.Fatalf("expected close frame to be sent, calls=%d", ft.closeCalls)
	}
}

func TestReceiveAfterClosedReturnsSentinelThenAlreadyClosed(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{}, ft, ft, "", false, false, nil)
	ep.mu.Lock()
	ep.closed = true
	ep.mu.Unlock()

	for i := 0; i < constants.ConnLostAccessThreshold-1; i++ {
		msg, err := ep.Receive()
		if err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if msg.Type != MsgClosed {
			t.Fatalf("attempt %d: expected CLOSED sentinel, got %v", i, msg.Type)
		}
	}

	_, err := ep.Receive()
	var ace *AlreadyClosedError
	if !errors.As(err, &ace) {
		t.Fatalf("expected AlreadyClosedError once threshold is reached, got %v", err)
	}
}

func TestReceiveOnPeerCloseWithAutocloseSendsCloseFrame(t *testing.T) {
	ft := newFakeTransport()
	ep := newEndpoint(uuid.New(), Config{Autoclose: true}, ft, ft, "", false, false, nil)
	ft.deliver(Message{Type: MsgClose, CloseCode: constants.CloseGoingAway})

	msg, err := ep.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Type != MsgClose || msg.CloseCode != constants.CloseGoingAway {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if !ep.Closed() {
		t.Fatal("expected autoclose to latch closed")
	}
	if ft.closeCalls != 1 {
		t.Fatalf("expected close frame sent by autoclose, calls=%d", ft.closeCalls)
	}
}
