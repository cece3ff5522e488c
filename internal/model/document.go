// internal/model/document.go
package model

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the tender type registered on a fiscal receipt
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentCheck  PaymentMethod = "check"
	PaymentTicket PaymentMethod = "ticket"
	PaymentOther  PaymentMethod = "other"
)

var paymentCodes = map[PaymentMethod]uint8{
	PaymentCash:   0,
	PaymentCard:   1,
	PaymentCheck:  2,
	PaymentTicket: 3,
	PaymentOther:  4,
}

// Code returns the wire code of the method
func (m PaymentMethod) Code() (uint8, error) {
	code, ok := paymentCodes[PaymentMethod(strings.ToLower(string(m)))]
	if !ok {
		return 0, fmt.Errorf("unknown payment method %q", m)
	}
	return code, nil
}

// SaleItem is one already-priced receipt line.
// VATCode, when set, is sent as-is; otherwise it is derived from VATPercent.
type SaleItem struct {
	Description string              `json:"description"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	VATPercent  decimal.NullDecimal `json:"vat_percent"`
	Department  uint8               `json:"department,omitempty"`
	VATCode     string              `json:"vat_code,omitempty"`
}

// Payment is one tender applied to the open receipt
type Payment struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Receipt is a complete fiscal receipt
type Receipt struct {
	OperatorID int        `json:"operator_id,omitempty"`
	Lines      []SaleItem `json:"lines"`
	Payments   []Payment  `json:"payments"`
}

// OrderItem is one kitchen ticket line
type OrderItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Notes       string          `json:"notes,omitempty"`
}

// Order is the comanda payload
type Order struct {
	Header      string      `json:"header,omitempty"`
	OrderNumber string      `json:"order_number,omitempty"`
	Table       string      `json:"table,omitempty"`
	Time        string      `json:"timestamp,omitempty"`
	Footer      string      `json:"footer,omitempty"`
	Items       []OrderItem `json:"items"`
}

// Alignment of a text job
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TextJob is a single formatted text print
type TextJob struct {
	Text      string    `json:"text"`
	Align     Alignment `json:"align,omitempty"`
	Bold      bool      `json:"bold,omitempty"`
	Underline bool      `json:"underline,omitempty"`
}

// ReceiptPayload is the print_receipt payload accepted by every driver kind.
// Fiscal drivers read the embedded Receipt; document drivers read Order, Image,
// Raw or Text in that order of preference.
type ReceiptPayload struct {
	Receipt
	Order *Order `json:"order,omitempty"`
	Text  string `json:"text,omitempty"`
	Raw   string `json:"raw,omitempty"`
	Image string `json:"receipt,omitempty"`
}

// RawBytes decodes the base64 raw payload
func (p ReceiptPayload) RawBytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.Raw)
	if err != nil {
		return nil, fmt.Errorf("raw is not valid base64: %w", err)
	}
	return data, nil
}

// ImageBytes decodes the base64 image payload. A data URL prefix
// (data:image/png;base64,) is accepted.
func (p ReceiptPayload) ImageBytes() ([]byte, error) {
	encoded := p.Image
	if idx := strings.IndexByte(encoded, ','); idx >= 0 {
		encoded = encoded[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("receipt image is not valid base64: %w", err)
	}
	return data, nil
}
