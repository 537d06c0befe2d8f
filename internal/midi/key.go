package midi

import "fmt"

// Class groups message kinds that share an action-table key space.
type Class uint8

const (
	ClassNote Class = iota + 1
	ClassProgram
	ClassController
)

func (c Class) String() string {
	switch c {
	case ClassNote:
		return "note"
	case ClassProgram:
		return "program"
	case ClassController:
		return "controller"
	}
	return "unknown"
}

// Key identifies an action-table entry: a note, program or controller number.
type Key struct {
	Class  Class
	Number int
}

// NoteKey returns the key for a note number.
func NoteKey(n int) Key { return Key{Class: ClassNote, Number: n} }

// ProgramKey returns the key for a program number.
func ProgramKey(n int) Key { return Key{Class: ClassProgram, Number: n} }

// ControllerKey returns the key for a controller number.
func ControllerKey(n int) Key { return Key{Class: ClassController, Number: n} }

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Class, k.Number)
}
