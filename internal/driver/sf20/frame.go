// internal/driver/sf20/frame.go
package sf20

import (
	"printer-service/pkg/driver"
)

// Control bytes
const (
	STX byte = 0x02
	ETX byte = 0x03
	ACK byte = 0x06
	NAK byte = 0x15
)

// Command codes
const (
	CmdOpenReceipt  byte = 0x30
	CmdSellItem     byte = 0x31
	CmdSubtotal     byte = 0x32
	CmdPayment      byte = 0x33
	CmdCloseReceipt byte = 0x34
	CmdStatus       byte = 0x35
	CmdCancel       byte = 0x36
	CmdZReport      byte = 0x37
)

var commandNames = map[byte]string{
	CmdOpenReceipt:  "open_receipt",
	CmdSellItem:     "sell_item",
	CmdSubtotal:     "subtotal",
	CmdPayment:      "payment",
	CmdCloseReceipt: "close_receipt",
	CmdStatus:       "status",
	CmdCancel:       "cancel",
	CmdZReport:      "z_report",
}

// CommandName returns a log-friendly name for a command code
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "unknown"
}

// ParsedFrame is a validated frame
type ParsedFrame struct {
	Command byte
	Payload []byte
}

// Checksum is the XOR fold of data
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Frame builds STX | cmd | payload | XOR(cmd‖payload) | ETX
func Frame(cmd byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, STX, cmd)
	out = append(out, payload...)
	out = append(out, Checksum(out[1:]), ETX)
	return out
}

// ParseFrame validates framing and checksum and splits the frame
func ParseFrame(data []byte) (ParsedFrame, error) {
	if len(data) < 4 {
		return ParsedFrame{}, &driver.FrameError{Kind: driver.KindTooShort, Length: len(data)}
	}
	if data[0] != STX || data[len(data)-1] != ETX {
		return ParsedFrame{}, &driver.FrameError{Kind: driver.KindInvalidFraming, Length: len(data)}
	}

	body := data[1 : len(data)-2]
	expected := Checksum(body)
	received := data[len(data)-2]
	if expected != received {
		return ParsedFrame{}, &driver.FrameError{
			Kind:     driver.KindChecksumMismatch,
			Length:   len(data),
			Expected: expected,
			Received: received,
		}
	}

	payload := make([]byte, len(body)-1)
	copy(payload, body[1:])
	return ParsedFrame{Command: body[0], Payload: payload}, nil
}
