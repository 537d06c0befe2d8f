package router

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dayuer/midimapper-go/internal/bus"
	"github.com/dayuer/midimapper-go/internal/midi"
)

// encoder adapts an OutputPort to action.Output. Sends are serialized so
// actions on different lanes never interleave bytes.
type encoder struct {
	mu   sync.Mutex
	port OutputPort
	bus  *bus.Bus
	sent atomic.Uint64
}

func (e *encoder) Send(m midi.Message) error {
	raw, err := midi.Encode(m)
	if err != nil {
		return err
	}
	if err := e.write(raw); err != nil {
		return fmt.Errorf("send %s: %w", m, err)
	}
	ev := bus.NewEvent(bus.EventOut, m)
	ev.Raw = raw
	e.bus.Publish(ev)
	return nil
}

func (e *encoder) sendRaw(raw []byte) error {
	return e.write(raw)
}

func (e *encoder) write(raw []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.port.Send(raw); err != nil {
		return err
	}
	e.sent.Add(1)
	return nil
}
