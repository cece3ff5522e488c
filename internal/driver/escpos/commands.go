// internal/driver/escpos/commands.go
package escpos

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ESC_POS_COMMANDS contains the ESC/POS command definitions used for kitchen documents
var ESC_POS_COMMANDS = struct {
	// Basic commands
	INITIALIZE []byte

	// Text formatting
	TEXT_BOLD_ON       []byte
	TEXT_BOLD_OFF      []byte
	TEXT_UNDERLINE_ON  []byte
	TEXT_UNDERLINE_OFF []byte

	// Text size (ESC ! print mode)
	TEXT_SIZE_NORMAL        []byte
	TEXT_SIZE_DOUBLE_HEIGHT []byte
	TEXT_SIZE_DOUBLE_WIDTH  []byte
	TEXT_SIZE_DOUBLE_BOTH   []byte

	// Text alignment
	ALIGN_LEFT   []byte
	ALIGN_CENTER []byte
	ALIGN_RIGHT  []byte

	// Character sets
	SELECT_CODE_PAGE []byte // + table number

	// Paper handling
	LINE_FEED  []byte
	FEED_LINES []byte // + line count byte

	// Cutting
	CUT_FULL    []byte
	CUT_PARTIAL []byte

	// Cash drawer
	DRAWER_KICK_PIN2 []byte
}{
	// Basic commands
	INITIALIZE: []byte{0x1B, 0x40}, // ESC @

	// Text formatting
	TEXT_BOLD_ON:       []byte{0x1B, 0x45, 0x01}, // ESC E 1
	TEXT_BOLD_OFF:      []byte{0x1B, 0x45, 0x00}, // ESC E 0
	TEXT_UNDERLINE_ON:  []byte{0x1B, 0x2D, 0x01}, // ESC - 1
	TEXT_UNDERLINE_OFF: []byte{0x1B, 0x2D, 0x00}, // ESC - 0

	// Text size
	TEXT_SIZE_NORMAL:        []byte{0x1B, 0x21, 0x00}, // ESC ! 0
	TEXT_SIZE_DOUBLE_HEIGHT: []byte{0x1B, 0x21, 0x10}, // ESC ! 16
	TEXT_SIZE_DOUBLE_WIDTH:  []byte{0x1B, 0x21, 0x20}, // ESC ! 32
	TEXT_SIZE_DOUBLE_BOTH:   []byte{0x1B, 0x21, 0x30}, // ESC ! 48

	// Text alignment
	ALIGN_LEFT:   []byte{0x1B, 0x61, 0x00}, // ESC a 0
	ALIGN_CENTER: []byte{0x1B, 0x61, 0x01}, // ESC a 1
	ALIGN_RIGHT:  []byte{0x1B, 0x61, 0x02}, // ESC a 2

	// Character sets
	SELECT_CODE_PAGE: []byte{0x1B, 0x74}, // ESC t

	// Paper handling
	LINE_FEED:  []byte{0x0A},       // LF
	FEED_LINES: []byte{0x1B, 0x64}, // ESC d + n

	// Cutting
	CUT_FULL:    []byte{0x1D, 0x56, 0x00}, // GS V 0
	CUT_PARTIAL: []byte{0x1D, 0x56, 0x01}, // GS V 1

	// Cash drawer
	DRAWER_KICK_PIN2: []byte{0x1B, 0x70, 0x00, 0x19, 0x19}, // ESC p 0 25 25
}

// CodePage is a printer character table and the encoder feeding it
type CodePage struct {
	Name    string
	Table   byte
	charmap *charmap.Charmap
}

var codePages = map[string]CodePage{
	"utf8":   {Name: "utf8"},
	"cp437":  {Name: "cp437", Table: 0, charmap: charmap.CodePage437},
	"cp850":  {Name: "cp850", Table: 2, charmap: charmap.CodePage850},
	"cp852":  {Name: "cp852", Table: 18, charmap: charmap.CodePage852},
	"cp858":  {Name: "cp858", Table: 19, charmap: charmap.CodePage858},
	"cp1252": {Name: "cp1252", Table: 16, charmap: charmap.Windows1252},
}

// LookupCodePage resolves a configured code page name. Empty means utf8.
func LookupCodePage(name string) (CodePage, error) {
	if name == "" {
		name = "utf8"
	}
	cp, ok := codePages[strings.ToLower(name)]
	if !ok {
		return CodePage{}, fmt.Errorf("unsupported code page %q", name)
	}
	return cp, nil
}

// Encode converts s to the code page. UTF-8 passes through; unmappable runes become '?'.
func (cp CodePage) Encode(s string) []byte {
	if cp.charmap == nil {
		return []byte(s)
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := cp.charmap.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// InitSequence is ESC @, followed by ESC t n for single-byte code pages
func (cp CodePage) InitSequence() []byte {
	seq := append([]byte(nil), ESC_POS_COMMANDS.INITIALIZE...)
	if cp.charmap != nil {
		seq = append(seq, ESC_POS_COMMANDS.SELECT_CODE_PAGE...)
		seq = append(seq, cp.Table)
	}
	return seq
}

func alignCommand(align string) []byte {
	switch strings.ToLower(align) {
	case "center":
		return ESC_POS_COMMANDS.ALIGN_CENTER
	case "right":
		return ESC_POS_COMMANDS.ALIGN_RIGHT
	default:
		return ESC_POS_COMMANDS.ALIGN_LEFT
	}
}
