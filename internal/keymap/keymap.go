// Package keymap maps symbolic key names (case-insensitive, optionally
// composed with ctrl+/alt+/shift+ prefixes) to the byte sequence a PTY
// client expects from that keypress. Names not in the table yield
// ErrInvalidKey rather than a best-effort guess, since an unmapped key
// silently producing the wrong bytes into an interactive session is
// worse than a rejected call.
package keymap

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned for any name this table doesn't recognize.
var ErrInvalidKey = errors.New("invalid key")

var namedKeys = map[string]string{
	"enter":     "\r",
	"return":    "\r",
	"tab":       "\t",
	"escape":    "\x1b",
	"esc":       "\x1b",
	"backspace": "\x7f",
	"delete":    "\x1b[3~",
	"del":       "\x1b[3~",
	"up":        "\x1b[A",
	"down":      "\x1b[B",
	"right":     "\x1b[C",
	"left":      "\x1b[D",
	"home":      "\x1b[H",
	"end":       "\x1b[F",
	"pageup":    "\x1b[5~",
	"pagedown":  "\x1b[6~",
	"insert":    "\x1b[2~",
	"space":     " ",
	"f1":        "\x1bOP",
	"f2":        "\x1bOQ",
	"f3":        "\x1bOR",
	"f4":        "\x1bOS",
	"f5":        "\x1b[15~",
	"f6":        "\x1b[17~",
	"f7":        "\x1b[18~",
	"f8":        "\x1b[19~",
	"f9":        "\x1b[20~",
	"f10":       "\x1b[21~",
	"f11":       "\x1b[23~",
	"f12":       "\x1b[24~",
}

var modifierNames = map[string]bool{
	"ctrl": true, "control": true,
	"alt": true,
	"shift": true,
	"meta": true, "cmd": true, "command": true, "win": true, "super": true,
}

// IsModifierName reports whether key (case-insensitive) names a
// modifier key, the only keys keydown/keyup accept.
func IsModifierName(key string) bool {
	return modifierNames[strings.ToLower(key)]
}

// ToEscapeSequence resolves a symbolic key name to the bytes to write to
// the PTY. The name may carry any number of "ctrl+"/"alt+"/"shift+"
// prefixes in any order; ctrl combined with a printable single
// character produces that character's C0 control byte (ctrl+a -> 0x01)
// rather than failing, matching a real terminal's behavior.
func ToEscapeSequence(key string) ([]byte, error) {
	rest := strings.ToLower(key)
	var ctrl, alt, shift bool

	for {
		switch {
		case strings.HasPrefix(rest, "ctrl+"):
			ctrl = true
			rest = rest[len("ctrl+"):]
		case strings.HasPrefix(rest, "control+"):
			ctrl = true
			rest = rest[len("control+"):]
		case strings.HasPrefix(rest, "alt+"):
			alt = true
			rest = rest[len("alt+"):]
		case strings.HasPrefix(rest, "shift+"):
			shift = true
			rest = rest[len("shift+"):]
		default:
			goto resolved
		}
	}

resolved:
	if seq, ok := namedKeys[rest]; ok {
		return applyAltShift(seq, alt, shift, ctrl), nil
	}

	runes := []rune(rest)
	if len(runes) == 1 {
		r := runes[0]
		if ctrl {
			b, ok := ctrlByte(r)
			if !ok {
				return nil, ErrInvalidKey
			}
			return applyAlt([]byte{b}, alt), nil
		}
		return applyAlt([]byte(string(r)), alt), nil
	}

	return nil, ErrInvalidKey
}

// applyAltShift prefixes a named key's sequence with ESC when alt is
// held (the standard "meta" convention); shift is folded into the named
// key table itself when it changes the sequence (none of the entries
// above do, so shift is currently a no-op on named keys) and ctrl has no
// effect on a sequence that is already an escape code.
func applyAltShift(seq string, alt, shift, ctrl bool) []byte {
	_ = shift
	_ = ctrl
	return applyAlt([]byte(seq), alt)
}

func applyAlt(seq []byte, alt bool) []byte {
	if !alt {
		return seq
	}
	out := make([]byte, 0, len(seq)+1)
	out = append(out, '\x1b')
	out = append(out, seq...)
	return out
}

// ctrlByte maps a printable character to its C0 control byte, e.g.
// ctrl+a -> 0x01, ctrl+[ -> 0x1b. Only the ASCII range ctrl actually
// affects on a real keyboard is supported; anything else is invalid.
func ctrlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1, true
	case r == '@':
		return 0, true
	case r == '[':
		return 0x1b, true
	case r == '\\':
		return 0x1c, true
	case r == ']':
		return 0x1d, true
	case r == '^':
		return 0x1e, true
	case r == '_':
		return 0x1f, true
	default:
		return 0, false
	}
}
