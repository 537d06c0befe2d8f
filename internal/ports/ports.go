// Package ports opens the MIDI endpoints the router reads from and writes
// to. Native ports go through gomidi (the driver is registered by the
// binary); names prefixed with "serial:" open a serial device speaking raw
// MIDI, such as a DIN interface or a microcontroller.
package ports

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ports")

// SerialPrefix selects the serial driver for an endpoint query.
const SerialPrefix = "serial:"

// DefaultBaud is the MIDI DIN bit rate.
const DefaultBaud = 31250

// Direction tells sources from destinations in errors and listings.
type Direction string

const (
	Source      Direction = "source"
	Destination Direction = "destination"
)

// ErrEndpointNotFound matches every *EndpointNotFoundError.
var ErrEndpointNotFound = stderrors.New("endpoint not found")

// ErrUnavailable reports that a listed endpoint could not be opened.
var ErrUnavailable = stderrors.New("endpoint unavailable")

// EndpointNotFoundError reports a query that matched no endpoint name.
type EndpointNotFoundError struct {
	Direction Direction
	Query     string
	Available []string
}

func (e *EndpointNotFoundError) Error() string {
	avail := "none"
	if len(e.Available) > 0 {
		avail = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("no %s matching %q (available: %s)", e.Direction, e.Query, avail)
}

func (e *EndpointNotFoundError) Is(target error) bool { return target == ErrEndpointNotFound }

// Input is an opened source.
type Input interface {
	Name() string
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Output is an opened destination.
type Output interface {
	Name() string
	Send(raw []byte) error
	Close() error
}

// Options tune how endpoints are opened.
type Options struct {
	Baud int // serial bit rate, DefaultBaud when zero
}

// Endpoint is one listed port.
type Endpoint struct {
	Name   string
	Driver string
}

// Listing holds every endpoint visible to the process.
type Listing struct {
	Sources      []Endpoint
	Destinations []Endpoint
}

// Resolve returns the index of the first name containing query. Matching
// is case-sensitive.
func Resolve(dir Direction, names []string, query string) (int, error) {
	for i, n := range names {
		if strings.Contains(n, query) {
			return i, nil
		}
	}
	return -1, &EndpointNotFoundError{Direction: dir, Query: query, Available: names}
}

// List returns native and serial endpoints. A failing serial enumeration is
// logged and leaves only the native ports.
func List() Listing {
	var l Listing
	for _, n := range nativeInNames() {
		l.Sources = append(l.Sources, Endpoint{Name: n, Driver: "midi"})
	}
	for _, n := range nativeOutNames() {
		l.Destinations = append(l.Destinations, Endpoint{Name: n, Driver: "midi"})
	}
	serials, err := serialNames()
	if err != nil {
		log.WithError(err).Warn("listing serial ports failed")
	}
	for _, n := range serials {
		ep := Endpoint{Name: SerialPrefix + n, Driver: "serial"}
		l.Sources = append(l.Sources, ep)
		l.Destinations = append(l.Destinations, ep)
	}
	return l
}

// OpenInput opens the first source matching query.
func OpenInput(query string, opts Options) (Input, error) {
	if q, ok := strings.CutPrefix(query, SerialPrefix); ok {
		return openSerial(Source, q, opts)
	}
	return openNativeIn(query)
}

// OpenOutput opens the first destination matching query.
func OpenOutput(query string, opts Options) (Output, error) {
	if q, ok := strings.CutPrefix(query, SerialPrefix); ok {
		return openSerial(Destination, q, opts)
	}
	return openNativeOut(query)
}

// Open opens both ends. When both name the same serial device it is opened
// once and shared; close it once.
func Open(source, destination string, opts Options) (Input, Output, error) {
	in, err := OpenInput(source, opts)
	if err != nil {
		return nil, nil, err
	}
	if s, ok := in.(*Serial); ok && s.sameDevice(destination) {
		return in, s, nil
	}
	out, err := OpenOutput(destination, opts)
	if err != nil {
		in.Close()
		return nil, nil, err
	}
	return in, out, nil
}

// unavailable wraps a driver failure on a resolved endpoint.
func unavailable(dir Direction, name string, cause error) error {
	return errors.Wrapf(ErrUnavailable, "open %s %q: %v", dir, name, cause)
}
