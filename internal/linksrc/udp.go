package linksrc

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

// UDPSource listens for wire frames carried one-per-datagram on a UDP
// socket. Unlike kissnet.go's single-client TCP listener, UDPSource is
// connectionless: any sender on the configured address is accepted,
// matching how UAVCAN/UDP publishers address a subject's multicast or
// broadcast group rather than opening a session.
type UDPSource struct {
	conn   *net.UDPConn
	frames chan Received
	done   chan struct{}
}

// NewUDPSource opens a UDP socket bound to listenAddr (host:port) and
// starts reading. A multicast listenAddr is bound as given; no group
// membership is requested. SO_REUSEADDR is set via golang.org/x/sys
// only after the socket is bound, so it does not let a second
// NewUDPSource bind the same port.
func NewUDPSource(listenAddr string) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	if err := setReuseAddr(conn); err != nil {
		conn.Close()
		return nil, err
	}

	var s = &UDPSource{
		conn:   conn,
		frames: make(chan Received, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func setReuseAddr(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

func (s *UDPSource) readLoop() {
	defer close(s.frames)

	var buf = make([]byte, 65535)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		var raw = make([]byte, n)
		copy(raw, buf[:n])

		var now = time.Now()
		var ts = transfer.Timestamp{System: now, Monotonic: now}
		subject, source, frame, err := decodeFrame(raw, ts, transfer.NodeIDUnset)
		if err != nil {
			continue
		}

		select {
		case s.frames <- Received{Subject: subject, Source: source, Frame: frame}:
		case <-s.done:
			return
		}
	}
}

// Frames returns the channel of decoded frames.
func (s *UDPSource) Frames() <-chan Received {
	return s.frames
}

// Close stops the read loop and releases the socket.
func (s *UDPSource) Close() error {
	close(s.done)
	return s.conn.Close()
}
