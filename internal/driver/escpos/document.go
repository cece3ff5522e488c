// internal/driver/escpos/document.go
package escpos

import (
	"bytes"
	"unicode/utf8"

	"printer-service/internal/model"
)

const (
	defaultHeader      = "COMANDA"
	defaultOrderNumber = "???"
	defaultItem        = "ITEM"
	tearOffFeeds       = 3
)

// Document accumulates ESC/POS commands and text for one print job
type Document struct {
	buf      bytes.Buffer
	codePage CodePage
	width    int
}

// NewDocument creates an empty document for a printer of the given width
func NewDocument(codePage CodePage, width int) *Document {
	return &Document{codePage: codePage, width: width}
}

// Command appends raw command bytes
func (d *Document) Command(cmds ...[]byte) *Document {
	for _, cmd := range cmds {
		d.buf.Write(cmd)
	}
	return d
}

// Line appends encoded text and LF
func (d *Document) Line(text string) *Document {
	d.buf.Write(d.codePage.Encode(text))
	d.buf.Write(ESC_POS_COMMANDS.LINE_FEED)
	return d
}

// FitLine appends text truncated to the printer width, then LF
func (d *Document) FitLine(text string) *Document {
	d.buf.Write(d.fit(d.codePage.Encode(text)))
	d.buf.Write(ESC_POS_COMMANDS.LINE_FEED)
	return d
}

// PaddedLine appends text space-padded and truncated to the printer width, then LF
func (d *Document) PaddedLine(text string) *Document {
	encoded := d.codePage.Encode(text)
	if pad := d.width - len(encoded); pad > 0 {
		encoded = append(encoded, bytes.Repeat([]byte{' '}, pad)...)
	}
	d.buf.Write(d.fit(encoded))
	d.buf.Write(ESC_POS_COMMANDS.LINE_FEED)
	return d
}

// Separator appends a full-width dash line
func (d *Document) Separator() *Document {
	d.buf.Write(bytes.Repeat([]byte{'-'}, d.width))
	d.buf.Write(ESC_POS_COMMANDS.LINE_FEED)
	return d
}

// Feed appends n line feeds
func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.Write(ESC_POS_COMMANDS.LINE_FEED)
	}
	return d
}

// Bytes returns the document
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// fit truncates encoded text to the width in bytes. UTF-8 output is cut on a
// rune boundary so the printer never receives half a character.
func (d *Document) fit(encoded []byte) []byte {
	if len(encoded) <= d.width {
		return encoded
	}
	cut := d.width
	if d.codePage.charmap == nil {
		for cut > 0 && !utf8.RuneStart(encoded[cut]) {
			cut--
		}
	}
	return encoded[:cut]
}

// BuildComandaDocument lays out a kitchen order ticket
func BuildComandaDocument(order model.Order, width int, codePage CodePage) []byte {
	doc := NewDocument(codePage, width)

	header := order.Header
	if header == "" {
		header = defaultHeader
	}
	orderNumber := order.OrderNumber
	if orderNumber == "" {
		orderNumber = defaultOrderNumber
	}

	doc.Command(codePage.InitSequence()).
		Command(ESC_POS_COMMANDS.ALIGN_CENTER, ESC_POS_COMMANDS.TEXT_SIZE_DOUBLE_BOTH, ESC_POS_COMMANDS.TEXT_BOLD_ON).
		Line(header).
		Command(ESC_POS_COMMANDS.TEXT_BOLD_OFF, ESC_POS_COMMANDS.TEXT_SIZE_NORMAL).
		Separator().
		Command(ESC_POS_COMMANDS.ALIGN_LEFT).
		Line("Order: " + orderNumber)

	if order.Table != "" {
		doc.Line("Table: " + order.Table)
	}
	if order.Time != "" {
		doc.Line("Time: " + order.Time)
	}

	doc.Separator().
		Command(ESC_POS_COMMANDS.TEXT_BOLD_ON).
		PaddedLine("Items").
		Command(ESC_POS_COMMANDS.TEXT_BOLD_OFF)

	for _, item := range order.Items {
		description := item.Description
		if description == "" {
			description = defaultItem
		}
		quantity := "1"
		if !item.Quantity.IsZero() {
			quantity = item.Quantity.String()
		}

		doc.FitLine(quantity + "x " + description)
		if item.Notes != "" {
			doc.FitLine("  " + item.Notes)
		}
	}

	doc.Separator()

	if order.Footer != "" {
		doc.Command(ESC_POS_COMMANDS.ALIGN_CENTER).Line(order.Footer)
	}

	return doc.Feed(tearOffFeeds).Bytes()
}

// BuildTextDocument lays out a formatted text job. Formatting switched on is
// switched off again after the text, bold first.
func BuildTextDocument(job model.TextJob, codePage CodePage) []byte {
	doc := NewDocument(codePage, 0)

	doc.Command(alignCommand(string(job.Align)))
	if job.Bold {
		doc.Command(ESC_POS_COMMANDS.TEXT_BOLD_ON)
	}
	if job.Underline {
		doc.Command(ESC_POS_COMMANDS.TEXT_UNDERLINE_ON)
	}

	doc.Line(job.Text)

	if job.Bold {
		doc.Command(ESC_POS_COMMANDS.TEXT_BOLD_OFF)
	}
	if job.Underline {
		doc.Command(ESC_POS_COMMANDS.TEXT_UNDERLINE_OFF)
	}
	return doc.Bytes()
}
