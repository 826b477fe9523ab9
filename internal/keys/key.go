// Package keys identifies physical keys and turns sets of held keys into
// canonical combo strings.
package keys

import (
	"fmt"
	"strings"
	"unicode"
)

// Virtual key codes as delivered by the global hook (libuiohook VC_* values).
const (
	CodeEscape    uint16 = 0x0001
	CodeBackspace uint16 = 0x000E
	CodeTab       uint16 = 0x000F
	CodeEnter     uint16 = 0x001C
	CodeSpace     uint16 = 0x0039
	CodeCapsLock  uint16 = 0x003A

	CodeCtrlL  uint16 = 0x001D
	CodeCtrlR  uint16 = 0x0E1D
	CodeShiftL uint16 = 0x002A
	CodeShiftR uint16 = 0x0036
	CodeAltL   uint16 = 0x0038
	CodeAltR   uint16 = 0x0E38
	CodeCmdL   uint16 = 0x0E5B
	CodeCmdR   uint16 = 0x0E5C
	CodeMenu   uint16 = 0x0E5D

	CodeUp    uint16 = 0xE048
	CodeLeft  uint16 = 0xE04B
	CodeRight uint16 = 0xE04D
	CodeDown  uint16 = 0xE050

	CodeInsert   uint16 = 0x0E52
	CodeDelete   uint16 = 0x0E53
	CodeHome     uint16 = 0x0E47
	CodeEnd      uint16 = 0x0E4F
	CodePageUp   uint16 = 0x0E49
	CodePageDown uint16 = 0x0E51

	CodePrintScreen uint16 = 0x0E37
	CodeScrollLock  uint16 = 0x0046
	CodePause       uint16 = 0x0E45
	CodeNumLock     uint16 = 0x0045

	CodeF1  uint16 = 0x003B
	CodeF11 uint16 = 0x0057
	CodeF12 uint16 = 0x0058
	CodeF13 uint16 = 0x005B
	CodeF16 uint16 = 0x0063

	CodeA uint16 = 0x001E
	CodeB uint16 = 0x0030
	CodeS uint16 = 0x001F
	Code1 uint16 = 0x0002
)

// Key is a raw key identity: the hook's virtual code plus the printable
// character when the hook reported one. Left and right variants of the same
// control key are distinct Keys but share a logical identity.
type Key struct {
	Code uint16
	Char rune
}

// FromCode returns the Key for a virtual code, filling Char for character keys.
func FromCode(code uint16) Key {
	return Key{Code: code, Char: charCodes[code]}
}

// FromChar returns the Key that produces r, or a code-less Key carrying only
// the character when no physical key is known for it.
func FromChar(r rune) Key {
	r = unicode.ToLower(r)
	for code, c := range charCodes {
		if c == r {
			return Key{Code: code, Char: r}
		}
	}
	return Key{Char: r}
}

// ID is the raw identity used for pressed-set membership.
func (k Key) ID() uint32 {
	if k.Code != 0 {
		return uint32(k.Code)
	}
	return 0x10000 | uint32(k.Char)
}

// String returns the display name.
func (k Key) String() string { return Name(k) }

var sidePairs = map[uint16]uint16{
	CodeCtrlR:  CodeCtrlL,
	CodeShiftR: CodeShiftL,
	CodeAltR:   CodeAltL,
	CodeCmdR:   CodeCmdL,
}

var modifierCodes = map[uint16]bool{
	CodeCtrlL: true, CodeCtrlR: true,
	CodeShiftL: true, CodeShiftR: true,
	CodeAltL: true, CodeAltR: true,
	CodeCmdL: true, CodeCmdR: true,
}

// Titles follow the long-standing names used in persisted bindings.
var namedCodes = map[uint16]string{
	CodeCtrlL:       "Ctrl",
	CodeShiftL:      "Shift",
	CodeAltL:        "Alt",
	CodeCmdL:        "Cmd",
	CodeMenu:        "Menu",
	CodeEscape:      "Esc",
	CodeBackspace:   "Backspace",
	CodeTab:         "Tab",
	CodeEnter:       "Enter",
	CodeSpace:       "Space",
	CodeCapsLock:    "Caps_Lock",
	CodeUp:          "Up",
	CodeDown:        "Down",
	CodeLeft:        "Left",
	CodeRight:       "Right",
	CodeInsert:      "Insert",
	CodeDelete:      "Delete",
	CodeHome:        "Home",
	CodeEnd:         "End",
	CodePageUp:      "Page_Up",
	CodePageDown:    "Page_Down",
	CodePrintScreen: "Print_Screen",
	CodeScrollLock:  "Scroll_Lock",
	CodePause:       "Pause",
	CodeNumLock:     "Num_Lock",
	0x0E35:          "Num_Divide",
	0x0037:          "Num_Multiply",
	0x004A:          "Num_Subtract",
	0x004E:          "Num_Add",
	0x0E1C:          "Num_Enter",
	0x0053:          "Num_Decimal",
	0x0052:          "Num_0",
	0x004F:          "Num_1",
	0x0050:          "Num_2",
	0x0051:          "Num_3",
	0x004B:          "Num_4",
	0x004C:          "Num_5",
	0x004D:          "Num_6",
	0x0047:          "Num_7",
	0x0048:          "Num_8",
	0x0049:          "Num_9",
}

var charCodes = map[uint16]rune{
	0x0029: '`', 0x0002: '1', 0x0003: '2', 0x0004: '3', 0x0005: '4',
	0x0006: '5', 0x0007: '6', 0x0008: '7', 0x0009: '8', 0x000A: '9',
	0x000B: '0', 0x000C: '-', 0x000D: '=',
	0x0010: 'q', 0x0011: 'w', 0x0012: 'e', 0x0013: 'r', 0x0014: 't',
	0x0015: 'y', 0x0016: 'u', 0x0017: 'i', 0x0018: 'o', 0x0019: 'p',
	0x001A: '[', 0x001B: ']', 0x002B: '\\',
	0x001E: 'a', 0x001F: 's', 0x0020: 'd', 0x0021: 'f', 0x0022: 'g',
	0x0023: 'h', 0x0024: 'j', 0x0025: 'k', 0x0026: 'l', 0x0027: ';',
	0x0028: '\'',
	0x002C: 'z', 0x002D: 'x', 0x002E: 'c', 0x002F: 'v', 0x0030: 'b',
	0x0031: 'n', 0x0032: 'm', 0x0033: ',', 0x0034: '.', 0x0035: '/',
}

func init() {
	for i := uint16(0); i < 10; i++ {
		namedCodes[CodeF1+i] = fmt.Sprintf("F%d", i+1)
	}
	namedCodes[CodeF11] = "F11"
	namedCodes[CodeF12] = "F12"
	for i := uint16(0); i < 3; i++ {
		namedCodes[CodeF13+i] = fmt.Sprintf("F%d", i+13)
	}
	for i := uint16(0); i < 9; i++ {
		namedCodes[CodeF16+i] = fmt.Sprintf("F%d", i+16)
	}
}

// Logical collapses side-specific variants onto one identity.
func Logical(k Key) Key {
	if left, ok := sidePairs[k.Code]; ok {
		return Key{Code: left}
	}
	return k
}

// IsModifier reports whether k is a control, shift, alt or command key.
func IsModifier(k Key) bool {
	return modifierCodes[k.Code]
}

// Name returns the stable display name of k. Named control keys get a fixed
// title, character keys their uppercase character, and anything else a raw
// textual form.
func Name(k Key) string {
	k = Logical(k)
	if name, ok := namedCodes[k.Code]; ok {
		return name
	}
	if k.Char != 0 && unicode.IsPrint(k.Char) {
		return strings.ToUpper(string(k.Char))
	}
	if c, ok := charCodes[k.Code]; ok {
		return strings.ToUpper(string(c))
	}
	if k.Code != 0 {
		return fmt.Sprintf("Key(0x%04X)", k.Code)
	}
	return fmt.Sprintf("Key(%q)", k.Char)
}

// Lookup resolves a display name (case-insensitive) back to a Key.
func Lookup(name string) (Key, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Key{}, false
	}
	for code, title := range namedCodes {
		if strings.EqualFold(title, name) {
			return Key{Code: code}, true
		}
	}
	if alias, ok := aliases[strings.ToLower(name)]; ok {
		return Key{Code: alias}, true
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return FromChar(runes[0]), true
	}
	return Key{}, false
}

var aliases = map[string]uint16{
	"control":  CodeCtrlL,
	"ctrl_l":   CodeCtrlL,
	"ctrl_r":   CodeCtrlR,
	"shift_l":  CodeShiftL,
	"shift_r":  CodeShiftR,
	"alt_l":    CodeAltL,
	"alt_r":    CodeAltR,
	"alt_gr":   CodeAltR,
	"option":   CodeAltL,
	"command":  CodeCmdL,
	"cmd_l":    CodeCmdL,
	"cmd_r":    CodeCmdR,
	"meta":     CodeCmdL,
	"super":    CodeCmdL,
	"win":      CodeCmdL,
	"escape":   CodeEscape,
	"return":   CodeEnter,
	"del":      CodeDelete,
	"pageup":   CodePageUp,
	"pgup":     CodePageUp,
	"pagedown": CodePageDown,
	"pgdn":     CodePageDown,
}
