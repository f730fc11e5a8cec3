// Package label lays out the shop label for a DeviceRecord and renders it as
// a printable PDF page and a PNG preview. Both renderers draw the same Page,
// so the preview always matches the PDF.
package label

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/boombuler/barcode"

	"etiquetas/internal"
)

// Page geometry is in millimetres from the top-left corner of an A4 sheet.
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0

	labelX      = 20.0
	labelY      = 20.0
	labelWidth  = 85.0
	labelHeight = 50.0
	labelRadius = 4.0

	qrSize   = 32.0
	qrMargin = 6.0
	textX    = labelX + 8.0
)

type OpKind int

const (
	OpRoundedRect OpKind = iota
	OpLine
	OpText
	OpCode
)

type FontStyle string

const (
	Regular FontStyle = ""
	Bold    FontStyle = "B"
	Italic  FontStyle = "I"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

type RGB struct{ R, G, B uint8 }

var (
	primaryColor   = RGB{0x1A, 0x1A, 0x1A}
	secondaryColor = RGB{0x66, 0x66, 0x66}
	borderColor    = RGB{0xE0, 0xE0, 0xE0}
)

// Op is one drawing instruction. Text positions are baselines.
type Op struct {
	Kind      OpKind
	X, Y      float64
	X2, Y2    float64
	W, H      float64
	Radius    float64
	LineWidth float64
	Color     RGB
	Text      string
	Size      float64
	Style     FontStyle
	Align     Align
	Code      barcode.Barcode
	Name      string
}

type Page struct {
	WidthMM, HeightMM float64
	Ops               []Op
}

type Options struct {
	Brand string
	// QRTemplate may reference {phone} and {serial}.
	QRTemplate string
	Phone      string
}

// QRContent fills the template with the query-escaped phone and serial.
func QRContent(template, phone, serial string) string {
	return strings.NewReplacer(
		"{phone}", url.QueryEscape(phone),
		"{serial}", url.QueryEscape(serial),
	).Replace(template)
}

// Layout places every element of the label for rec.
func Layout(rec internal.DeviceRecord, opts Options) (Page, error) {
	qrCode, err := EncodeQR(QRContent(opts.QRTemplate, opts.Phone, rec.Serial))
	if err != nil {
		return Page{}, fmt.Errorf("qr: %w", err)
	}

	ops := []Op{
		{Kind: OpRoundedRect, X: labelX, Y: labelY, W: labelWidth, H: labelHeight, Radius: labelRadius, LineWidth: 0.35, Color: borderColor},
		{Kind: OpCode, Name: "qr", Code: qrCode,
			X: labelX + labelWidth - qrSize - qrMargin, Y: labelY + (labelHeight-qrSize)/2, W: qrSize, H: qrSize},
		{Kind: OpText, X: textX, Y: labelY + 12, Text: rec.Model, Size: 16, Style: Bold, Color: primaryColor},
		{Kind: OpLine, X: textX, Y: labelY + 15, X2: labelX + 45, Y2: labelY + 15, LineWidth: 0.35, Color: borderColor},
		{Kind: OpText, X: textX, Y: labelY + 22, Text: "Capacidad: " + rec.Capacity, Size: 9, Color: secondaryColor},
		{Kind: OpText, X: textX, Y: labelY + 27, Text: "Color: " + rec.Color, Size: 9, Color: secondaryColor},
		{Kind: OpText, X: textX, Y: labelY + 32, Text: "Batería: " + rec.BatteryHealth, Size: 9, Color: secondaryColor},
		{Kind: OpText, X: textX, Y: labelY + 37, Text: "IMEI: " + rec.IMEI, Size: 7, Color: secondaryColor},
		{Kind: OpText, X: textX, Y: labelY + labelHeight - 8, Text: "SN: " + rec.Serial, Size: 7, Color: secondaryColor},
	}

	if brand := strings.TrimSpace(opts.Brand); brand != "" {
		ops = append(ops, Op{Kind: OpText, X: labelX + labelWidth - 8, Y: labelY + labelHeight - 8,
			Text: brand, Size: 7, Style: Italic, Align: AlignRight, Color: secondaryColor})
	}

	if rec.IMEI != internal.PlaceholderNA {
		bar, err := EncodeCode128(rec.IMEI)
		if err != nil {
			return Page{}, fmt.Errorf("imei barcode: %w", err)
		}
		ops = append(ops, Op{Kind: OpCode, Name: "imei", Code: bar,
			X: textX, Y: labelY + labelHeight - 6.5, W: 37, H: 4.5})
	}

	return Page{WidthMM: PageWidthMM, HeightMM: PageHeightMM, Ops: ops}, nil
}
