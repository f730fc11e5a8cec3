package pipeline

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etiquetas/internal"
	"etiquetas/internal/catalog"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		filename string
		blob     string
		want     internal.ReportKind
	}{
		{"report.TXT", "", internal.KindText},
		{"report.pdf", "", internal.KindPDF},
		{"report.htm", "", internal.KindHTML},
		{"report.html", "", internal.KindHTML},
		{"report.eml", "", internal.KindEmail},
		{"upload", "%PDF-1.4\n", internal.KindPDF},
		{"upload", "<!DOCTYPE html><html>", internal.KindHTML},
		{"upload", "MIME-Version: 1.0\r\n", internal.KindEmail},
		{"upload", "Device Model iPhone", internal.KindText},
	}
	for _, tt := range tests {
		got, err := DetectKind(tt.filename, []byte(tt.blob))
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}

	_, err := DetectKind("photo.jpg", []byte{0xFF, 0xD8})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, AcceptedExtension("photo.jpg"))
	assert.True(t, AcceptedExtension("REPORT.EML"))
}

func TestReportTextHTML(t *testing.T) {
	text, err := ReportText(internal.KindHTML, readFixture(t, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Device Model    iPhone 12 Pro    Normal")

	rec, err := NewParser(catalog.Default()).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12 Pro", rec.Model)
	assert.Equal(t, "Azul pacífico", rec.Color)
	assert.Equal(t, "356789101234567", rec.IMEI)
}

func TestReportTextEmailAttachment(t *testing.T) {
	text, err := ReportText(internal.KindEmail, readFixture(t, "report.eml"))
	require.NoError(t, err)

	rec, err := NewParser(catalog.Default()).Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "F2LDQ0ABCD12", rec.Serial)
	assert.Equal(t, "87%", rec.BatteryHealth)
}

func TestReportTextEmailWithoutReport(t *testing.T) {
	_, err := ReportText(internal.KindEmail, readFixture(t, "question.eml"))
	assert.ErrorIs(t, err, ErrUnreadableInput)
}

func TestReportTextPDF(t *testing.T) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 10)
	lines := []string{
		"Device Model    iPhone 12 Pro    Normal",
		"Serial Number    F2LDQ0ABCD12    Normal",
	}
	for i, line := range lines {
		doc.Text(20, 20+float64(i)*6, line)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	text, err := ReportText(internal.KindPDF, buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, string(text), "F2LDQ0ABCD12")
}

func TestReportTextBrokenPDF(t *testing.T) {
	_, err := ReportText(internal.KindPDF, []byte("%PDF-1.4\nnot really a pdf"))
	assert.ErrorIs(t, err, ErrUnreadableInput)
}

func TestDetectReport(t *testing.T) {
	assert.True(t, DetectReport(string(readFixture(t, "report_current.txt"))).IsReport)
	assert.True(t, DetectReport(string(readFixture(t, "report_legacy.txt"))).IsReport)
	assert.False(t, DetectReport("Hola, tienen iPhone 12 disponibles?").IsReport)
}
