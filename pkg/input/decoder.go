// Package input turns raw terminal input into activity notifications.
package input

import (
	"bytes"
	"strconv"
	"unicode/utf8"

	"github.com/Veraticus/activity-monitor/pkg/interfaces"
	"github.com/Veraticus/activity-monitor/pkg/types"
)

const esc = 0x1b

// maxPending bounds how much of an unterminated escape sequence is kept.
const maxPending = 64

// Escape sequences that switch xterm-compatible terminals in and out of
// any-event mouse tracking with SGR coordinates.
var (
	enableMouseTracking  = []byte("\033[?1003h\033[?1006h")
	disableMouseTracking = []byte("\033[?1006l\033[?1003l")
)

// Decoder parses terminal input bytes into handler calls. Sequences split
// across Feed calls are buffered until complete. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	handler     interfaces.InputHandler
	onInterrupt func()
	pending     []byte
}

// NewDecoder creates a decoder delivering events to handler.
func NewDecoder(handler interfaces.InputHandler) *Decoder {
	return &Decoder{handler: handler}
}

// SetInterruptHandler registers fn to be called when Ctrl-C is read.
func (d *Decoder) SetInterruptHandler(fn func()) {
	d.onInterrupt = fn
}

// Feed decodes data, keeping any incomplete trailing sequence.
func (d *Decoder) Feed(data []byte) {
	buf := append(d.pending, data...)
	d.pending = nil

	i := 0
	for i < len(buf) {
		n, complete := d.decode(buf[i:])
		if !complete {
			rest := buf[i:]
			if len(rest) == 1 && rest[0] == esc {
				// A lone escape at the end of a read is the Escape key.
				d.key(types.KeyEscape)
				return
			}
			if len(rest) <= maxPending {
				d.pending = append([]byte(nil), rest...)
			}
			return
		}
		i += n
	}
}

// decode consumes one token from b and reports its length. complete is false
// if b holds only the beginning of a sequence.
func (d *Decoder) decode(b []byte) (n int, complete bool) {
	c := b[0]
	switch {
	case c == esc:
		return d.decodeEscape(b)
	case c == '\r' || c == '\n':
		d.key(types.KeyEnter)
	case c == '\t':
		d.key(types.KeyTab)
	case c == 0x7f || c == 0x08:
		d.key(types.KeyBackspace)
	case c == ' ':
		d.key(types.KeySpace)
	case c == 0x03:
		d.key(types.CtrlKey('c'))
		if d.onInterrupt != nil {
			d.onInterrupt()
		}
	case c == 0x00:
		d.key(types.SpecialKey("ctrl+space"))
	case c < 0x20:
		d.key(types.CtrlKey(rune('a' + c - 1)))
	default:
		if !utf8.FullRune(b) {
			return 0, false
		}
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError {
			d.key(types.KeyUnknown)
		} else {
			d.key(types.CharKey(r))
		}
		return size, true
	}
	return 1, true
}

func (d *Decoder) decodeEscape(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, false
	}

	switch b[1] {
	case '[':
		return d.decodeCSI(b)
	case 'O':
		if len(b) < 3 {
			return 0, false
		}
		d.key(ss3Key(b[2]))
		return 3, true
	case esc:
		d.key(types.KeyEscape)
		return 1, true
	default:
		// Alt chord: report the underlying key.
		n, complete := d.decode(b[1:])
		if !complete {
			return 0, false
		}
		return n + 1, true
	}
}

func (d *Decoder) decodeCSI(b []byte) (int, bool) {
	if len(b) < 3 {
		return 0, false
	}

	if b[2] == '<' {
		end := bytes.IndexAny(b[3:], "Mm")
		if end < 0 {
			return 0, false
		}
		d.sgrMouse(b[3:3+end], b[3+end])
		return 3 + end + 1, true
	}

	if b[2] == 'M' {
		// Legacy X10 mouse report: ESC [ M Cb Cx Cy.
		if len(b) < 6 {
			return 0, false
		}
		button := int(b[3]) - 32
		x, y := int(b[4])-33, int(b[5])-33
		d.mouse(button, x, y, button&3 != 3)
		return 6, true
	}

	// Parameter and intermediate bytes, then a final byte in 0x40..0x7e.
	for i := 2; i < len(b); i++ {
		c := b[i]
		if c >= 0x40 && c <= 0x7e {
			if key, ok := csiKey(b[2:i], c); ok {
				d.key(key)
			}
			return i + 1, true
		}
		if c < 0x20 || c > 0x3f {
			// Malformed; drop the introducer and resync.
			return 2, true
		}
	}
	return 0, false
}

func (d *Decoder) sgrMouse(params []byte, final byte) {
	fields := bytes.Split(params, []byte(";"))
	if len(fields) != 3 {
		return
	}
	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(string(f))
		if err != nil {
			return
		}
		vals[i] = v
	}
	d.mouse(vals[0], vals[1]-1, vals[2]-1, final == 'M')
}

// mouse dispatches an xterm button code.
func (d *Decoder) mouse(code, x, y int, pressed bool) {
	switch {
	case code&64 != 0:
		if !pressed {
			return
		}
		dx, dy := 0, 0
		switch code & 3 {
		case 0:
			dy = 1
		case 1:
			dy = -1
		case 2:
			dx = -1
		case 3:
			dx = 1
		}
		d.handler.OnMouseScroll(x, y, dx, dy)
	case code&32 != 0:
		d.handler.OnMouseMove(x, y)
	default:
		d.handler.OnMouseClick(x, y, mouseButton(code&3), pressed)
	}
}

func (d *Decoder) key(k types.Key) {
	d.handler.OnKeyPress(k)
}

func mouseButton(low int) types.Button {
	switch low {
	case 0:
		return types.ButtonLeft
	case 1:
		return types.ButtonMiddle
	case 2:
		return types.ButtonRight
	default:
		return types.ButtonUnknown
	}
}

func ss3Key(c byte) types.Key {
	switch c {
	case 'A':
		return types.KeyUp
	case 'B':
		return types.KeyDown
	case 'C':
		return types.KeyRight
	case 'D':
		return types.KeyLeft
	case 'H':
		return types.KeyHome
	case 'F':
		return types.KeyEnd
	case 'P', 'Q', 'R', 'S':
		return types.FunctionKey(int(c-'P') + 1)
	default:
		return types.KeyUnknown
	}
}

var tildeKeys = map[int]types.SpecialKey{
	1:  types.KeyHome,
	2:  types.KeyInsert,
	3:  types.KeyDelete,
	4:  types.KeyEnd,
	5:  types.KeyPageUp,
	6:  types.KeyPageDown,
	7:  types.KeyHome,
	8:  types.KeyEnd,
	11: types.FunctionKey(1),
	12: types.FunctionKey(2),
	13: types.FunctionKey(3),
	14: types.FunctionKey(4),
	15: types.FunctionKey(5),
	17: types.FunctionKey(6),
	18: types.FunctionKey(7),
	19: types.FunctionKey(8),
	20: types.FunctionKey(9),
	21: types.FunctionKey(10),
	23: types.FunctionKey(11),
	24: types.FunctionKey(12),
}

// csiKey maps a CSI sequence to a key. Focus reports and other
// non-key sequences return false.
func csiKey(params []byte, final byte) (types.Key, bool) {
	switch final {
	case 'A', 'B', 'C', 'D', 'H', 'F':
		return ss3Key(final), true
	case 'Z':
		return types.KeyTab, true
	case '~':
		first := params
		if i := bytes.IndexByte(params, ';'); i >= 0 {
			first = params[:i]
		}
		n, err := strconv.Atoi(string(first))
		if err != nil {
			return types.KeyUnknown, true
		}
		if k, ok := tildeKeys[n]; ok {
			return k, true
		}
		return types.KeyUnknown, true
	case 'I', 'O':
		return nil, false
	default:
		return types.KeyUnknown, true
	}
}
