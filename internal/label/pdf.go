package label

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/go-pdf/fpdf"
)

// codeDPI is the raster resolution of embedded QR and barcode images.
const codeDPI = 600

func RenderPDF(page Page, w io.Writer) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for i, op := range page.Ops {
		switch op.Kind {
		case OpRoundedRect:
			doc.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			doc.SetLineWidth(op.LineWidth)
			doc.RoundedRect(op.X, op.Y, op.W, op.H, op.Radius, "1234", "D")
		case OpLine:
			doc.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			doc.SetLineWidth(op.LineWidth)
			doc.Line(op.X, op.Y, op.X2, op.Y2)
		case OpText:
			doc.SetFont("Helvetica", string(op.Style), op.Size)
			doc.SetTextColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			text := tr(op.Text)
			x := op.X
			if op.Align == AlignRight {
				x -= doc.GetStringWidth(text)
			}
			doc.Text(x, op.Y, text)
		case OpCode:
			img, err := scaleCode(op.Code, mmToPx(op.W, codeDPI), mmToPx(op.H, codeDPI))
			if err != nil {
				return fmt.Errorf("scale %s: %w", op.Name, err)
			}
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return fmt.Errorf("encode %s: %w", op.Name, err)
			}
			name := fmt.Sprintf("%s-%d", op.Name, i)
			opt := fpdf.ImageOptions{ImageType: "PNG"}
			doc.RegisterImageOptionsReader(name, opt, &buf)
			doc.ImageOptions(name, op.X, op.Y, op.W, op.H, false, opt, 0, "")
		}
	}

	if err := doc.Error(); err != nil {
		return err
	}
	return doc.Output(w)
}

func mmToPx(mm, dpi float64) int {
	return int(mm*dpi/25.4 + 0.5)
}
