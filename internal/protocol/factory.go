// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// NewLink creates the byte-stream link selected by the printer's link configuration.
// TCP is used when no link type is configured.
func NewLink(params model.ConnectionParams, link model.LinkConfig, logger *zap.Logger) (Link, error) {
	switch link.Type {
	case "", model.ConnectionTypeTCP:
		return createTCPLink(params, logger)
	case model.ConnectionTypeSerial:
		return createSerialLink(params, link.Serial, logger)
	case model.ConnectionTypeUSB:
		return createUSBLink(params, link.USB, logger)
	default:
		return nil, fmt.Errorf("unsupported link type: %s", link.Type)
	}
}

// createTCPLink creates a raw TCP link
func createTCPLink(params model.ConnectionParams, logger *zap.Logger) (Link, error) {
	if params.Host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	if params.Port == 0 {
		return nil, fmt.Errorf("invalid port number: %d", params.Port)
	}

	tcpConfig := &TCPConfig{
		Host:      params.Host,
		Port:      int(params.Port),
		KeepAlive: true,
		Timeout:   params.Timeout(),
	}

	logger.Debug("Creating TCP link",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
		zap.Duration("timeout", tcpConfig.Timeout),
	)

	return NewTCPConnection(tcpConfig, logger), nil
}

// createSerialLink creates a serial link
func createSerialLink(params model.ConnectionParams, settings model.SerialSettings, logger *zap.Logger) (Link, error) {
	if settings.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}

	serialConfig := &SerialConfig{
		Port:     settings.Port,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  params.Timeout(),
	}

	if settings.BaudRate != 0 {
		if !validBaudRate(settings.BaudRate) {
			return nil, fmt.Errorf("invalid baud rate: %d", settings.BaudRate)
		}
		serialConfig.BaudRate = settings.BaudRate
	}
	if settings.DataBits != 0 {
		serialConfig.DataBits = settings.DataBits
	}
	if settings.StopBits != 0 {
		serialConfig.StopBits = settings.StopBits
	}
	if settings.Parity != "" {
		serialConfig.Parity = settings.Parity
	}
	if serialConfig.Timeout == 0 {
		serialConfig.Timeout = 5 * time.Second
	}

	logger.Debug("Creating serial link",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, logger), nil
}

// createUSBLink creates a USB link
func createUSBLink(params model.ConnectionParams, settings model.USBSettings, logger *zap.Logger) (Link, error) {
	if settings.VendorID == "" {
		return nil, fmt.Errorf("USB vendor_id is required")
	}
	if settings.ProductID == "" {
		return nil, fmt.Errorf("USB product_id is required")
	}
	if _, err := parseHexID(settings.VendorID); err != nil {
		return nil, fmt.Errorf("invalid USB vendor_id %q: %w", settings.VendorID, err)
	}
	if _, err := parseHexID(settings.ProductID); err != nil {
		return nil, fmt.Errorf("invalid USB product_id %q: %w", settings.ProductID, err)
	}

	usbConfig := &USBConfig{
		VendorID:  settings.VendorID,
		ProductID: settings.ProductID,
		Endpoint:  settings.Endpoint,
		Timeout:   params.Timeout(),
	}
	if usbConfig.Endpoint == 0 {
		usbConfig.Endpoint = 1
	}

	logger.Debug("Creating USB link",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
		zap.Int("endpoint", usbConfig.Endpoint),
	)

	return NewUSBConnection(usbConfig, logger), nil
}

func validBaudRate(rate int) bool {
	for _, valid := range validBaudRates {
		if rate == valid {
			return true
		}
	}
	return false
}
