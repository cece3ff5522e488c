// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

// USBConnection implements Link over a USB printer-class bulk endpoint pair
type USBConnection struct {
	config   *USBConfig
	usbCtx   *gousb.Context
	device   *gousb.Device
	intf     *gousb.Interface
	release  func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	stats    *linkStats
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) *USBConnection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
		stats: &linkStats{},
	}
}

// Address returns vendor:product
func (uc *USBConnection) Address() string {
	return uc.config.VendorID + ":" + uc.config.ProductID
}

// Open finds the device and claims its default interface
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	uc.usbCtx = gousb.NewContext()

	device, err := uc.usbCtx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil || device == nil {
		uc.usbCtx.Close()
		uc.usbCtx = nil
		if err == nil {
			err = fmt.Errorf("device %04X:%04X not found", vendorID, productID)
		}
		return fmt.Errorf("failed to open USB device: %w", err)
	}
	_ = device.SetAutoDetach(true)

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		uc.usbCtx.Close()
		uc.usbCtx = nil
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	endpoint := uc.config.Endpoint
	if endpoint == 0 {
		endpoint = 1
	}

	outEndpt, err := intf.OutEndpoint(endpoint)
	if err != nil {
		done()
		device.Close()
		uc.usbCtx.Close()
		uc.usbCtx = nil
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}

	inEndpt, err := intf.InEndpoint(endpoint | 0x80)
	if err != nil {
		// write-only printers have no status channel
		uc.logger.Warn("No in endpoint found", zap.Error(err))
	}

	uc.device = device
	uc.intf = intf
	uc.release = done
	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt
	uc.isOpen = true
	uc.stats.setConnected(true)

	uc.logger.Info("USB connection opened")
	return nil
}

// Close releases the interface, the device and the libusb context
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	if uc.release != nil {
		uc.release()
		uc.release = nil
	}

	var err error
	if uc.device != nil {
		err = uc.device.Close()
		uc.device = nil
	}
	if uc.usbCtx != nil {
		uc.usbCtx.Close()
		uc.usbCtx = nil
	}

	uc.intf = nil
	uc.outEndpt = nil
	uc.inEndpt = nil
	uc.isOpen = false
	uc.stats.setConnected(false)

	if err != nil {
		return fmt.Errorf("failed to close USB device: %w", err)
	}
	return nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.outEndpt != nil
}

// Write sends data on the bulk OUT endpoint
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return fmt.Errorf("USB connection not open")
	}

	opCtx, cancel := uc.withTimeout(ctx)
	defer cancel()

	startTime := time.Now()
	n, err := uc.outEndpt.WriteContext(opCtx, data)
	if err != nil {
		uc.stats.recordError()
		return fmt.Errorf("failed to write to USB device: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	uc.stats.recordWrite(len(data), time.Since(startTime))
	return nil
}

// Read receives from the bulk IN endpoint
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.inEndpt == nil {
		return nil, fmt.Errorf("USB connection not open or no in endpoint")
	}

	opCtx, cancel := uc.withTimeout(ctx)
	defer cancel()

	buffer := make([]byte, maxBytes)
	n, err := uc.inEndpt.ReadContext(opCtx, buffer)
	if err != nil {
		uc.stats.recordError()
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}

	uc.stats.recordRead(n)
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (uc *USBConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeUSB
}

func (uc *USBConnection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.config.Timeout)
}

// parseHexID parses a hex ID string (0x04b8 or 04b8)
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(hexStr), "0x")

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// Stats returns a copy of the link statistics
func (uc *USBConnection) Stats() ProtocolStats {
	return uc.stats.snapshot()
}
