// internal/driver/sf20/payload.go
package sf20

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

const (
	descriptionWidth = 32
	vatCodeWidth     = 2
	defaultVATRate   = 22
)

var (
	maxWireValue = decimal.NewFromInt(math.MaxUint32)

	// descriptions are printed in the printer's single-byte code page
	textEncoding = charmap.Windows1252

	fiscalNumberPattern = regexp.MustCompile(`\d{1,10}`)
)

// FixedPoint converts d to round(d × 10^exp) as an unsigned 32 bit wire value
func FixedPoint(d decimal.Decimal, exp int32, field string) (uint32, error) {
	scaled := d.Shift(exp).Round(0)
	if scaled.IsNegative() || scaled.GreaterThan(maxWireValue) {
		return 0, driver.NewConfigError(driver.KindInvalidRange, field,
			fmt.Sprintf("%s does not fit the wire format", d.String()))
	}
	return uint32(scaled.IntPart()), nil
}

// EncodeText converts s to the printer code page, replacing unmappable runes
// with '?', then truncates or space-pads it to exactly width bytes.
func EncodeText(s string, width int) []byte {
	out := make([]byte, 0, width)
	for _, r := range s {
		if len(out) == width {
			break
		}
		b, ok := textEncoding.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	for len(out) < width {
		out = append(out, ' ')
	}
	return out
}

// VATCode returns the two ASCII byte VAT code of an item
func VATCode(item model.SaleItem) (string, error) {
	code := item.VATCode
	if code == "" {
		rate := decimal.NewFromInt(defaultVATRate)
		if item.VATPercent.Valid {
			rate = item.VATPercent.Decimal
		}
		rounded := rate.Round(0)
		if rounded.IsNegative() || rounded.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return "", driver.NewConfigError(driver.KindInvalidRange, "vat_percent",
				fmt.Sprintf("%s is not a VAT rate", rate.String()))
		}
		code = rounded.String()
	}

	for _, r := range code {
		if r > 0x7F {
			return "", driver.NewConfigError(driver.KindInvalidRange, "vat_code", "must be ASCII")
		}
	}
	if len(code) > vatCodeWidth {
		code = code[:vatCodeWidth]
	}
	return code + strings.Repeat(" ", vatCodeWidth-len(code)), nil
}

// OpenReceiptPayload encodes the operator byte
func OpenReceiptPayload(operatorID int) ([]byte, error) {
	if operatorID < 1 || operatorID > 255 {
		return nil, driver.NewConfigError(driver.KindInvalidRange, "operator_id",
			fmt.Sprintf("%d is outside 1..255", operatorID))
	}
	return []byte{byte(operatorID)}, nil
}

// SellItemPayload encodes description(32) | qty×1000 | price×100 | department | vat(2).
// A zero quantity sells one unit; a zero department uses defaultDepartment.
func SellItemPayload(item model.SaleItem, defaultDepartment uint8) ([]byte, error) {
	quantity := item.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	qty, err := FixedPoint(quantity, 3, "quantity")
	if err != nil {
		return nil, err
	}
	price, err := FixedPoint(item.UnitPrice, 2, "unit_price")
	if err != nil {
		return nil, err
	}
	vat, err := VATCode(item)
	if err != nil {
		return nil, err
	}

	department := item.Department
	if department == 0 {
		department = defaultDepartment
	}

	payload := make([]byte, 0, descriptionWidth+4+4+1+vatCodeWidth)
	payload = append(payload, EncodeText(item.Description, descriptionWidth)...)
	payload = binary.BigEndian.AppendUint32(payload, qty)
	payload = binary.BigEndian.AppendUint32(payload, price)
	payload = append(payload, department)
	payload = append(payload, vat...)
	return payload, nil
}

// PaymentPayload encodes amount×100 | method code. An empty method is cash.
func PaymentPayload(payment model.Payment) ([]byte, error) {
	method := payment.Method
	if method == "" {
		method = model.PaymentCash
	}
	code, err := method.Code()
	if err != nil {
		return nil, driver.NewConfigError(driver.KindInvalidRange, "method", err.Error())
	}
	amount, err := FixedPoint(payment.Amount, 2, "amount")
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 5)
	payload = binary.BigEndian.AppendUint32(payload, amount)
	payload = append(payload, code)
	return payload, nil
}

// FiscalNumber extracts the first run of digits, or UNKNOWN
func FiscalNumber(payload []byte) string {
	if match := fiscalNumberPattern.Find(payload); match != nil {
		return string(match)
	}
	return "UNKNOWN"
}

// responseText decodes a printable response payload
func responseText(payload []byte) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7E {
			return -1
		}
		return r
	}, string(payload)))
}
