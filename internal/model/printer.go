// internal/model/printer.go
package model

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// PrinterClass separates fiscal printers from kitchen/bar document printers
type PrinterClass string

const (
	ClassFiscal    PrinterClass = "fiscal"
	ClassNonFiscal PrinterClass = "nonfiscal"
)

// Valid reports whether c is a known class
func (c PrinterClass) Valid() bool {
	return c == ClassFiscal || c == ClassNonFiscal
}

// PrinterKind is the closed set of driver kinds
type PrinterKind string

const (
	KindSF20TCP   PrinterKind = "sf20_tcp"
	KindEscposTCP PrinterKind = "escpos_tcp"
	KindEpsonEPOS PrinterKind = "epson_epos"
)

// Class returns the printer class served by the kind
func (k PrinterKind) Class() PrinterClass {
	switch k {
	case KindSF20TCP:
		return ClassFiscal
	case KindEscposTCP, KindEpsonEPOS:
		return ClassNonFiscal
	default:
		return ""
	}
}

// Valid reports whether k is a known kind
func (k PrinterKind) Valid() bool {
	return k.Class() != ""
}

// ConnectionType represents how the byte stream reaches the printer
type ConnectionType string

const (
	ConnectionTypeTCP    ConnectionType = "tcp"
	ConnectionTypeSerial ConnectionType = "serial"
	ConnectionTypeUSB    ConnectionType = "usb"
)

// ConnectionParams is immutable per adapter instance
type ConnectionParams struct {
	Host           string `json:"host"`
	Port           uint16 `json:"port"`
	TimeoutSeconds uint32 `json:"timeout_seconds"`
}

// Address returns host:port
func (p ConnectionParams) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// Timeout returns the per-call I/O timeout
func (p ConnectionParams) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SerialSettings configures a serial link
type SerialSettings struct {
	Port     string `json:"port" mapstructure:"port"`
	BaudRate int    `json:"baud_rate" mapstructure:"baud_rate"`
	DataBits int    `json:"data_bits" mapstructure:"data_bits"`
	StopBits int    `json:"stop_bits" mapstructure:"stop_bits"`
	Parity   string `json:"parity" mapstructure:"parity"`
}

// USBSettings configures a USB bulk link
type USBSettings struct {
	VendorID  string `json:"vendor_id" mapstructure:"vendor_id"`
	ProductID string `json:"product_id" mapstructure:"product_id"`
	Endpoint  int    `json:"endpoint" mapstructure:"endpoint"`
}

// LinkConfig selects the byte-stream link. TCP is used when Type is empty.
type LinkConfig struct {
	Type   ConnectionType `json:"type" mapstructure:"type"`
	Serial SerialSettings `json:"serial" mapstructure:"serial"`
	USB    USBSettings    `json:"usb" mapstructure:"usb"`
}

// PrinterConfig is the flat per-printer configuration supplied by the caller
type PrinterConfig struct {
	Kind           PrinterKind `json:"kind" mapstructure:"kind"`
	Host           string      `json:"host" mapstructure:"host"`
	Port           int         `json:"port" mapstructure:"port"`
	TimeoutSeconds int         `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	FailSafe       bool        `json:"fail_safe" mapstructure:"fail_safe"`
	Width          int         `json:"width" mapstructure:"width"`
	AutoCut        bool        `json:"auto_cut" mapstructure:"auto_cut"`
	AutoOpenDrawer bool        `json:"auto_open_drawer" mapstructure:"auto_open_drawer"`
	CodePage       string      `json:"code_page" mapstructure:"code_page"`
	Department     int         `json:"department" mapstructure:"department"`
	OperatorID     int         `json:"operator_id" mapstructure:"operator_id"`
	UseProxy       bool        `json:"use_proxy" mapstructure:"use_proxy"`
	Link           LinkConfig  `json:"link" mapstructure:"link"`
}

// Class returns the class implied by the configured kind
func (c PrinterConfig) Class() PrinterClass {
	return c.Kind.Class()
}

// Params converts the configuration into connection parameters.
// Range checks belong to config validation; values are clamped here.
func (c PrinterConfig) Params() ConnectionParams {
	port := c.Port
	if port < 0 || port > 65535 {
		port = 0
	}
	timeout := c.TimeoutSeconds
	if timeout < 0 {
		timeout = 0
	}
	return ConnectionParams{
		Host:           c.Host,
		Port:           uint16(port),
		TimeoutSeconds: uint32(timeout),
	}
}

// String identifies the printer in logs
func (c PrinterConfig) String() string {
	return fmt.Sprintf("%s@%s:%d", c.Kind, c.Host, c.Port)
}
