package ports

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/dayuer/midimapper-go/internal/midi"
)

func serialNames() ([]string, error) {
	return serial.GetPortsList()
}

// conn is the part of serial.Port the driver uses.
type conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Serial is a raw MIDI byte stream on a serial device. One value can act
// as both source and destination.
type Serial struct {
	name string
	conn conn

	rmu     sync.Mutex
	parser  midi.Parser
	pending [][]byte
	buf     []byte

	wmu sync.Mutex
}

func openSerial(dir Direction, query string, opts Options) (*Serial, error) {
	names, err := serialNames()
	if err != nil {
		return nil, unavailable(dir, query, err)
	}
	i, err := Resolve(dir, names, query)
	if err != nil {
		if nf, ok := err.(*EndpointNotFoundError); ok {
			for j, n := range nf.Available {
				nf.Available[j] = SerialPrefix + n
			}
		}
		return nil, err
	}

	baud := opts.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(names[i], &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, unavailable(dir, names[i], err)
	}
	log.WithField("port", names[i]).WithField("baud", baud).Infof("serial %s opened", dir)
	return newSerial(names[i], p), nil
}

func newSerial(name string, c conn) *Serial {
	return &Serial{name: name, conn: c, buf: make([]byte, 64)}
}

// sameDevice reports whether query resolves to this device.
func (s *Serial) sameDevice(query string) bool {
	q, ok := strings.CutPrefix(query, SerialPrefix)
	if !ok {
		return false
	}
	names, err := serialNames()
	if err != nil {
		return false
	}
	i, err := Resolve(Destination, names, q)
	return err == nil && names[i] == s.name
}

func (s *Serial) Name() string { return SerialPrefix + s.name }

// Receive returns the next complete message, reading from the device for
// at most timeout when none is buffered.
func (s *Serial) Receive(timeout time.Duration) ([]byte, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if len(s.pending) == 0 {
		if err := s.conn.SetReadTimeout(timeout); err != nil {
			return nil, fmt.Errorf("serial %s: %w", s.name, err)
		}
		n, err := s.conn.Read(s.buf)
		if err != nil {
			return nil, fmt.Errorf("serial %s: %w", s.name, err)
		}
		s.pending = append(s.pending, s.parser.Feed(s.buf[:n])...)
	}
	if len(s.pending) == 0 {
		return nil, nil
	}
	raw := s.pending[0]
	s.pending = s.pending[1:]
	return raw, nil
}

// Send writes one complete message.
func (s *Serial) Send(raw []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	for len(raw) > 0 {
		n, err := s.conn.Write(raw)
		if err != nil {
			return fmt.Errorf("serial %s: %w", s.name, err)
		}
		if n == 0 {
			return fmt.Errorf("serial %s: %w", s.name, io.ErrShortWrite)
		}
		raw = raw[n:]
	}
	return nil
}

func (s *Serial) Close() error { return s.conn.Close() }
