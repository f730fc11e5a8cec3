package label

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etiquetas/internal"
)

func sampleRecord() internal.DeviceRecord {
	return internal.DeviceRecord{
		Model:         "iPhone 12 Pro",
		Color:         "Azul pacífico",
		Capacity:      "128GB",
		Serial:        "F2LDQ0ABCD12",
		IMEI:          "356789101234567",
		BatteryHealth: "87%",
	}
}

func testOptions() Options {
	return Options{
		Brand:      "EmaTecno",
		QRTemplate: "https://wa.me/{phone}?text=SN:%20{serial}",
		Phone:      "+34 600",
	}
}

func findText(page Page, prefix string) (Op, bool) {
	for _, op := range page.Ops {
		if op.Kind == OpText && len(op.Text) >= len(prefix) && op.Text[:len(prefix)] == prefix {
			return op, true
		}
	}
	return Op{}, false
}

func TestQRContentEscapesValues(t *testing.T) {
	got := QRContent("https://wa.me/{phone}?text=SN:%20{serial}", "+34 600", "N/A")
	assert.Equal(t, "https://wa.me/%2B34+600?text=SN:%20N%2FA", got)
}

func TestLayoutPlacesRecordValues(t *testing.T) {
	page, err := Layout(sampleRecord(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, PageWidthMM, page.WidthMM)

	model, ok := findText(page, "iPhone 12 Pro")
	require.True(t, ok)
	assert.Equal(t, Bold, model.Style)
	assert.Equal(t, 16.0, model.Size)

	for _, prefix := range []string{"Capacidad: 128GB", "Color: Azul pacífico", "Batería: 87%", "SN: F2LDQ0ABCD12", "IMEI: 356789101234567"} {
		_, ok := findText(page, prefix)
		assert.True(t, ok, prefix)
	}

	brand, ok := findText(page, "EmaTecno")
	require.True(t, ok)
	assert.Equal(t, AlignRight, brand.Align)
	assert.Equal(t, Italic, brand.Style)

	codes := map[string]bool{}
	for _, op := range page.Ops {
		if op.Kind == OpCode {
			codes[op.Name] = true
			assert.LessOrEqual(t, op.X+op.W, labelX+labelWidth)
			assert.LessOrEqual(t, op.Y+op.H, labelY+labelHeight)
		}
	}
	assert.True(t, codes["qr"])
	assert.True(t, codes["imei"])
}

func TestLayoutSkipsBarcodeWithoutIMEI(t *testing.T) {
	page, err := Layout(internal.EmptyRecord(), Options{QRTemplate: "{serial}"})
	require.NoError(t, err)

	for _, op := range page.Ops {
		assert.NotEqual(t, "imei", op.Name)
	}
	_, ok := findText(page, "EmaTecno")
	assert.False(t, ok)
	model, ok := findText(page, internal.PlaceholderModel)
	require.True(t, ok)
	assert.Equal(t, Bold, model.Style)
}

func TestRenderPDF(t *testing.T) {
	page, err := Layout(sampleRecord(), testOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(page, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderPNG(t *testing.T) {
	page, err := Layout(sampleRecord(), testOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(page, 72, &buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, mmToPx(PageWidthMM, 72), img.Bounds().Dx())
	assert.Equal(t, mmToPx(PageHeightMM, 72), img.Bounds().Dy())
}

func TestRenderPNGRejectsZeroDPI(t *testing.T) {
	page, err := Layout(sampleRecord(), testOptions())
	require.NoError(t, err)
	assert.Error(t, RenderPNG(page, 0, &bytes.Buffer{}))
}
