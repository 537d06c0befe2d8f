package midi

// Parser splits a raw MIDI byte stream (as read from a serial line) into
// complete messages. It honors running status, emits System Real-Time bytes
// on their own and discards System Exclusive and System Common data.
type Parser struct {
	status byte
	buf    []byte
	sysex  bool
}

// Feed consumes data and returns every message completed by it.
func (p *Parser) Feed(data []byte) [][]byte {
	var out [][]byte
	for _, b := range data {
		switch {
		case b >= 0xF8:
			out = append(out, []byte{b})
		case b == 0xF0:
			p.sysex = true
			p.reset()
		case b == 0xF7:
			p.sysex = false
		case b >= 0xF1:
			p.sysex = false
			p.reset()
		case b >= 0x80:
			p.sysex = false
			p.status = b
			p.buf = append(p.buf[:0], b)
		case p.sysex || p.status == 0:
		default:
			p.buf = append(p.buf, b)
			if len(p.buf)-1 == streamDataLen(p.status) {
				out = append(out, append([]byte(nil), p.buf...))
				p.buf = append(p.buf[:0], p.status)
			}
		}
	}
	return out
}

func (p *Parser) reset() {
	p.status = 0
	p.buf = p.buf[:0]
}

func streamDataLen(status byte) int {
	switch Kind(status & 0xF0) {
	case KindProgramChange, 0xD0:
		return 1
	default:
		return 2
	}
}
