package label

import (
	"fmt"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce sync.Once
	fonts     map[FontStyle]*truetype.Font
	fontsErr  error
)

func loadFonts() (map[FontStyle]*truetype.Font, error) {
	fontsOnce.Do(func() {
		fonts = map[FontStyle]*truetype.Font{}
		for style, ttf := range map[FontStyle][]byte{Regular: goregular.TTF, Bold: gobold.TTF, Italic: goitalic.TTF} {
			f, err := truetype.Parse(ttf)
			if err != nil {
				fontsErr = fmt.Errorf("parse font %q: %w", style, err)
				return
			}
			fonts[style] = f
		}
	})
	return fonts, fontsErr
}

// RenderPNG rasterises the page at dpi dots per inch.
func RenderPNG(page Page, dpi float64, w io.Writer) error {
	if dpi <= 0 {
		return fmt.Errorf("invalid preview dpi %v", dpi)
	}
	faces, err := loadFonts()
	if err != nil {
		return err
	}

	px := func(mm float64) float64 { return mm * dpi / 25.4 }
	dc := gg.NewContext(int(px(page.WidthMM)+0.5), int(px(page.HeightMM)+0.5))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, op := range page.Ops {
		switch op.Kind {
		case OpRoundedRect:
			dc.SetRGB255(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			dc.SetLineWidth(px(op.LineWidth))
			dc.DrawRoundedRectangle(px(op.X), px(op.Y), px(op.W), px(op.H), px(op.Radius))
			dc.Stroke()
		case OpLine:
			dc.SetRGB255(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			dc.SetLineWidth(px(op.LineWidth))
			dc.DrawLine(px(op.X), px(op.Y), px(op.X2), px(op.Y2))
			dc.Stroke()
		case OpText:
			face := truetype.NewFace(faces[op.Style], &truetype.Options{Size: op.Size, DPI: dpi, Hinting: font.HintingFull})
			dc.SetFontFace(face)
			dc.SetRGB255(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			ax := 0.0
			if op.Align == AlignRight {
				ax = 1
			}
			dc.DrawStringAnchored(op.Text, px(op.X), px(op.Y), ax, 0)
		case OpCode:
			img, err := scaleCode(op.Code, int(px(op.W)+0.5), int(px(op.H)+0.5))
			if err != nil {
				return fmt.Errorf("scale %s: %w", op.Name, err)
			}
			dc.DrawImage(img, int(px(op.X)+0.5), int(px(op.Y)+0.5))
		}
	}

	return dc.EncodePNG(w)
}
