package label

import (
	"image"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

func EncodeQR(content string) (barcode.Barcode, error) {
	return qr.Encode(content, qr.H, qr.Auto)
}

func EncodeCode128(content string) (barcode.Barcode, error) {
	return code128.Encode(content)
}

// scaleCode renders code at w x h pixels, keeping whole modules for QR codes.
func scaleCode(code barcode.Barcode, w, h int) (image.Image, error) {
	b := code.Bounds()
	if w < b.Dx() {
		w = b.Dx()
	}
	if h < b.Dy() {
		h = b.Dy()
	}
	if code.Metadata().Dimensions == 2 {
		side := min(w, h)
		side -= side % b.Dx()
		w, h = side, side
	}
	return barcode.Scale(code, w, h)
}
