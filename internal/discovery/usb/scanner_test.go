package usb

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printer-service/internal/model"
)

func TestFromDescriptorKnownPrinter(t *testing.T) {
	s := NewScanner(zap.NewNop(), 0)

	printer := s.FromDescriptor(&gousb.DeviceDesc{Bus: 1, Address: 4, Vendor: 0x04B8, Product: 0x0e28})
	require.NotNil(t, printer)
	assert.Equal(t, "TM-T20X", printer.Name)
	assert.Equal(t, "Seiko Epson Corporation", printer.Vendor)
	assert.Equal(t, model.ConnectionTypeUSB, printer.ConnectionType)
	assert.Equal(t, model.KindEscposTCP, printer.SuggestedKind)
	assert.Equal(t, "0x04b8", printer.Link.USB.VendorID)
	assert.Equal(t, "0x0e28", printer.Link.USB.ProductID)
	assert.Equal(t, "usb:04b8:0e28", printer.Key())
}

func TestFromDescriptorPrinterClass(t *testing.T) {
	s := NewScanner(zap.NewNop(), 0)

	desc := &gousb.DeviceDesc{
		Vendor:  0x28E9,
		Product: 0x0289,
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassPrinter}},
			}}},
		},
	}

	printer := s.FromDescriptor(desc)
	require.NotNil(t, printer)
	assert.Equal(t, "USB printer 28e9:0289", printer.Name)
	assert.Empty(t, printer.Vendor)
}

func TestFromDescriptorIgnoresOtherDevices(t *testing.T) {
	s := NewScanner(zap.NewNop(), 0)

	desc := &gousb.DeviceDesc{
		Vendor:  0x046D,
		Product: 0xC52B,
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{{
				AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassHID}},
			}}},
		},
	}
	assert.Nil(t, s.FromDescriptor(desc))
}

func TestPrinterDatabaseUnknownProduct(t *testing.T) {
	db := NewPrinterDatabase()

	vendor, modelName, known := db.Identify(0x0519, 0xFFFF)
	assert.True(t, known)
	assert.Equal(t, "Star Micronics Co., Ltd.", vendor)
	assert.Empty(t, modelName)

	assert.False(t, db.IsKnownVendor(0x1234))
}
