// internal/discovery/usb/database.go
package usb

import (
	"github.com/google/gousb"

	"printer-service/internal/model"
)

// VendorInfo describes a receipt printer manufacturer
type VendorInfo struct {
	Name     string
	products map[gousb.ID]string
}

// PrinterDatabase maps USB vendor and product ids to known receipt printers
type PrinterDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// NewPrinterDatabase creates the database of known ESC/POS printers
func NewPrinterDatabase() *PrinterDatabase {
	db := &PrinterDatabase{
		vendors: make(map[gousb.ID]*VendorInfo),
	}
	db.initializeDatabase()
	return db
}

func (db *PrinterDatabase) initializeDatabase() {
	db.AddVendor(0x04B8, "Seiko Epson Corporation")
	db.AddProduct(0x04B8, 0x0202, "TM-T88IV")
	db.AddProduct(0x04B8, 0x0203, "TM-T88V")
	db.AddProduct(0x04B8, 0x0214, "TM-T88VI")
	db.AddProduct(0x04B8, 0x0215, "TM-T20III")
	db.AddProduct(0x04B8, 0x0216, "TM-T82III")
	db.AddProduct(0x04B8, 0x0217, "TM-m30")
	db.AddProduct(0x04B8, 0x0e28, "TM-T20X")

	db.AddVendor(0x0519, "Star Micronics Co., Ltd.")
	db.AddProduct(0x0519, 0x0001, "TSP143III")
	db.AddProduct(0x0519, 0x0003, "TSP654II")

	db.AddVendor(0x1CBE, "Citizen Systems Japan Co., Ltd.")
	db.AddProduct(0x1CBE, 0x0002, "CT-S4000")

	db.AddVendor(0x1504, "BIXOLON Co., Ltd.")
	db.AddProduct(0x1504, 0x0006, "SRP-330II")
	db.AddProduct(0x1504, 0x0007, "SRP-350III")

	// Generic 58/80mm Chinese printers (Xprinter, Rongta, HOIN)
	db.AddVendor(0x0416, "Winbond Electronics")
	db.AddProduct(0x0416, 0x5011, "POS-80")
	db.AddVendor(0x0FE6, "ICS Advent")
	db.AddProduct(0x0FE6, 0x811E, "POS-58")
}

// AddVendor registers a vendor
func (db *PrinterDatabase) AddVendor(vendorID gousb.ID, name string) {
	db.vendors[vendorID] = &VendorInfo{Name: name, products: make(map[gousb.ID]string)}
}

// AddProduct registers a product of an existing vendor
func (db *PrinterDatabase) AddProduct(vendorID, productID gousb.ID, modelName string) {
	if vendor, exists := db.vendors[vendorID]; exists {
		vendor.products[productID] = modelName
	}
}

// IsKnownVendor reports whether vendorID makes receipt printers
func (db *PrinterDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, exists := db.vendors[vendorID]
	return exists
}

// Identify returns the vendor name and model of a device. The model is
// empty for unknown products of a known vendor.
func (db *PrinterDatabase) Identify(vendorID, productID gousb.ID) (vendor, modelName string, known bool) {
	info, exists := db.vendors[vendorID]
	if !exists {
		return "", "", false
	}
	return info.Name, info.products[productID], true
}

// LinkConfig builds the USB link settings for a device
func LinkConfig(vendorID, productID gousb.ID) model.LinkConfig {
	return model.LinkConfig{
		Type: model.ConnectionTypeUSB,
		USB: model.USBSettings{
			VendorID:  "0x" + vendorID.String(),
			ProductID: "0x" + productID.String(),
		},
	}
}
