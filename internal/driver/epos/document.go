// internal/driver/epos/document.go
package epos

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"printer-service/internal/model"
)

const (
	envelopeHead = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <epos-print xmlns="http://www.epson-pos.com/schemas/2011/03/epos-print">
`
	envelopeTail = `    </epos-print>
  </s:Body>
</s:Envelope>`

	defaultImageWidth = 576
	defaultWidth      = 32

	defaultHeader      = "COMANDA"
	defaultOrderNumber = "???"
	defaultItem        = "ITEM"
)

func envelope(body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(envelopeHead)
	buf.WriteString(body)
	buf.WriteString(envelopeTail)
	return buf.Bytes()
}

func escape(text string) string {
	var escaped bytes.Buffer
	// EscapeText only fails on writer errors
	_ = xml.EscapeText(&escaped, []byte(text))
	return escaped.String()
}

// TextDocument prints escaped text, feeds and cuts
func TextDocument(text string) []byte {
	return envelope(fmt.Sprintf("      <text>%s</text>\n      <feed unit=\"24\"/>\n      <cut type=\"feed\"/>\n", escape(text)))
}

// OrderDocument prints a kitchen order ticket: a double size bold header,
// the order details and one line per item cut to width characters.
// A drawer pulse is appended when openDrawer is set.
func OrderDocument(order model.Order, width int, openDrawer bool) []byte {
	if width <= 0 {
		width = defaultWidth
	}
	header := order.Header
	if header == "" {
		header = defaultHeader
	}
	orderNumber := order.OrderNumber
	if orderNumber == "" {
		orderNumber = defaultOrderNumber
	}
	separator := strings.Repeat("-", width)

	details := []string{separator, "Order: " + orderNumber}
	if order.Table != "" {
		details = append(details, "Table: "+order.Table)
	}
	if order.Time != "" {
		details = append(details, "Time: "+order.Time)
	}
	details = append(details, separator)

	var items []string
	for _, item := range order.Items {
		description := item.Description
		if description == "" {
			description = defaultItem
		}
		quantity := "1"
		if !item.Quantity.IsZero() {
			quantity = item.Quantity.String()
		}
		items = append(items, fitRunes(quantity+"x "+description, width))
		if item.Notes != "" {
			items = append(items, fitRunes("  "+item.Notes, width))
		}
	}
	items = append(items, separator)

	var body strings.Builder
	body.WriteString("      <text align=\"center\"/>\n")
	fmt.Fprintf(&body, "      <text dw=\"true\" dh=\"true\" em=\"true\">%s</text>\n", escape(header+"\n"))
	body.WriteString("      <text dw=\"false\" dh=\"false\" em=\"false\"/>\n")
	body.WriteString("      <text align=\"left\"/>\n")
	fmt.Fprintf(&body, "      <text>%s</text>\n", escape(strings.Join(details, "\n")+"\n"))
	fmt.Fprintf(&body, "      <text em=\"true\">%s</text>\n", escape("Items\n"))
	body.WriteString("      <text em=\"false\"/>\n")
	fmt.Fprintf(&body, "      <text>%s</text>\n", escape(strings.Join(items, "\n")+"\n"))
	if order.Footer != "" {
		body.WriteString("      <text align=\"center\"/>\n")
		fmt.Fprintf(&body, "      <text>%s</text>\n", escape(order.Footer+"\n"))
	}
	body.WriteString("      <feed unit=\"24\"/>\n      <cut type=\"feed\"/>\n")
	if openDrawer {
		body.WriteString("      <pulse drawer=\"drawer_1\" time=\"pulse_100\"/>\n")
	}
	return envelope(body.String())
}

// fitRunes truncates text to width characters
func fitRunes(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width])
}

// ImageDocument prints a mono raster image. Dimensions come from the image
// header; an undecodable header falls back to 576x0 and lets the printer decide.
func ImageDocument(data []byte) []byte {
	width, height := defaultImageWidth, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	return envelope(fmt.Sprintf(
		"      <image width=\"%d\" height=\"%d\" color=\"color_1\" mode=\"mono\">%s</image>\n      <cut type=\"feed\"/>\n",
		width, height, base64.StdEncoding.EncodeToString(data),
	))
}

// DrawerDocument pulses drawer 1 for 100ms
func DrawerDocument() []byte {
	return envelope("      <pulse drawer=\"drawer_1\" time=\"pulse_100\"/>\n")
}

// EmptyDocument prints nothing
func EmptyDocument() []byte {
	return envelope("")
}
