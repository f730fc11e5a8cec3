package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	textunicode "golang.org/x/text/encoding/unicode"
)

func TestDecodeReportRejectsUnreadable(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"whitespace":  []byte(" \r\n\t \n"),
		"undecodable": {0xC0, 0xC1, 0xF5, 0xFF, 0xC0},
		"bom only":    {0xEF, 0xBB, 0xBF},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReport(raw)
			assert.ErrorIs(t, err, ErrUnreadableInput)
		})
	}
}

func TestDecodeReportNormalizesLineEndings(t *testing.T) {
	text, err := DecodeReport([]byte("\xEF\xBB\xBFDevice Model  iPhone\r\nIMEI  1\rNext"))
	require.NoError(t, err)
	assert.Equal(t, "Device Model  iPhone\nIMEI  1\nNext", text)
}

func TestDecodeReportDropsInvalidBytes(t *testing.T) {
	text, err := DecodeReport([]byte("Battery Life \xff87%"))
	require.NoError(t, err)
	assert.Equal(t, "Battery Life 87%", text)
}

func TestDecodeReportUTF16(t *testing.T) {
	const report = "Device Color  Azul pacífico\nIMEI  356789101234567\n"

	withBOM, err := textunicode.UTF16(textunicode.LittleEndian, textunicode.UseBOM).NewEncoder().Bytes([]byte(report))
	require.NoError(t, err)
	text, err := DecodeReport(withBOM)
	require.NoError(t, err)
	assert.Equal(t, report, text)

	bigEndian, err := textunicode.UTF16(textunicode.BigEndian, textunicode.IgnoreBOM).NewEncoder().Bytes([]byte(report))
	require.NoError(t, err)
	text, err = DecodeReport(bigEndian)
	require.NoError(t, err)
	assert.Equal(t, report, text)
}
