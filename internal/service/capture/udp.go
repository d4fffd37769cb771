package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"firewatch/internal/logger"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// UDPSource reassembles JPEG frames pushed by cameras as UDP packets.
// Capture returns the most recent complete frame that has not been consumed yet.
type UDPSource struct {
	conn    *net.UDPConn
	frames  chan []byte
	timeout time.Duration
	logger  *logger.Logger
}

// NewUDPSource listens on addr, e.g. ":9000". Capture gives up after timeout
// without a frame; a non-positive timeout uses DefaultTimeout.
func NewUDPSource(addr string, timeout time.Duration, logger *logger.Logger) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP %s: %w", addr, err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &UDPSource{
		conn:    conn,
		frames:  make(chan []byte, 1),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Addr is the bound local address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Run reads packets until ctx is cancelled. Each sender gets its own reassembly buffer.
func (s *UDPSource) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.logger.Info("UDP camera source listening on %s", s.conn.LocalAddr())
	buffer := make([]byte, 2048)
	senders := make(map[string]*bytes.Buffer)

	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		ip := remoteAddr.IP.String()
		imgBuffer, ok := senders[ip]
		if !ok {
			imgBuffer = new(bytes.Buffer)
			senders[ip] = imgBuffer
		}

		data := buffer[:n]
		if bytes.HasPrefix(data, jpegHeader) {
			imgBuffer.Reset()
		}
		if imgBuffer.Len()+n > maxImageSize {
			s.logger.Warning("Dropping oversized frame from %s", ip)
			imgBuffer.Reset()
			continue
		}
		imgBuffer.Write(data)

		if bytes.HasSuffix(data, jpegFooter) && bytes.HasPrefix(imgBuffer.Bytes(), jpegHeader) {
			frame := make([]byte, imgBuffer.Len())
			copy(frame, imgBuffer.Bytes())
			imgBuffer.Reset()
			s.publish(frame)
		}
	}
}

// publish keeps only the newest frame.
func (s *UDPSource) publish(frame []byte) {
	select {
	case <-s.frames:
	default:
	}
	s.frames <- frame
}

// Capture waits for the next complete frame.
func (s *UDPSource) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case frame := <-s.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no frame received: %w", ctx.Err())
	}
}

// Close stops listening. Closing after Run has already stopped is not an error.
func (s *UDPSource) Close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
