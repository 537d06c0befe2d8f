package ports

import (
	"sync/atomic"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// inboxSize bounds how many messages a native source buffers between polls.
const inboxSize = 256

func nativeInNames() []string {
	var names []string
	for _, p := range gomidi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

func nativeOutNames() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// inbox turns driver callbacks into a pollable queue.
type inbox struct {
	msgs    chan []byte
	dropped atomic.Uint64
}

func newInbox() *inbox {
	return &inbox{msgs: make(chan []byte, inboxSize)}
}

// push never blocks the driver thread; overflow is counted and dropped.
func (b *inbox) push(raw []byte) {
	select {
	case b.msgs <- append([]byte(nil), raw...):
	default:
		if b.dropped.Add(1) == 1 {
			log.Warn("input backlog full, dropping messages")
		}
	}
}

func (b *inbox) receive(timeout time.Duration) []byte {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case raw := <-b.msgs:
		return raw
	case <-t.C:
		return nil
	}
}

// NativeIn is a gomidi source.
type NativeIn struct {
	port drivers.In
	box  *inbox
	stop func()
}

func openNativeIn(query string) (*NativeIn, error) {
	ins := gomidi.GetInPorts()
	names := make([]string, len(ins))
	for i, p := range ins {
		names[i] = p.String()
	}
	i, err := Resolve(Source, names, query)
	if err != nil {
		return nil, err
	}

	in := &NativeIn{port: ins[i], box: newInbox()}
	stop, err := gomidi.ListenTo(in.port, func(msg gomidi.Message, _ int32) {
		in.box.push(msg)
	})
	if err != nil {
		return nil, unavailable(Source, names[i], err)
	}
	in.stop = stop
	log.WithField("port", names[i]).Info("source opened")
	return in, nil
}

func (in *NativeIn) Name() string { return in.port.String() }

// Receive waits up to timeout for the next message.
func (in *NativeIn) Receive(timeout time.Duration) ([]byte, error) {
	return in.box.receive(timeout), nil
}

// Close stops listening and closes the port.
func (in *NativeIn) Close() error {
	if in.stop != nil {
		in.stop()
	}
	return in.port.Close()
}

// NativeOut is a gomidi destination.
type NativeOut struct {
	port drivers.Out
	send func(gomidi.Message) error
}

func openNativeOut(query string) (*NativeOut, error) {
	outs := gomidi.GetOutPorts()
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	i, err := Resolve(Destination, names, query)
	if err != nil {
		return nil, err
	}

	send, err := gomidi.SendTo(outs[i])
	if err != nil {
		return nil, unavailable(Destination, names[i], err)
	}
	log.WithField("port", names[i]).Info("destination opened")
	return &NativeOut{port: outs[i], send: send}, nil
}

func (out *NativeOut) Name() string { return out.port.String() }

// Send writes one complete message.
func (out *NativeOut) Send(raw []byte) error {
	return out.send(gomidi.Message(raw))
}

func (out *NativeOut) Close() error { return out.port.Close() }

// CloseDriver releases the native MIDI driver. Call once at exit.
func CloseDriver() {
	gomidi.CloseDriver()
}
