package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// DecodeReport turns raw report bytes into text. Undecodable sequences are
// dropped; only input with nothing readable left is rejected.
func DecodeReport(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnreadableInput)
	}

	out, _, err := transform.Bytes(pickDecoder(raw), raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}

	text := lineEndings.Replace(string(out))
	text = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar || r == '\ufeff' {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no decodable text", ErrUnreadableInput)
	}
	return text, nil
}

func pickDecoder(raw []byte) transform.Transformer {
	switch sniffUTF16(raw) {
	case "le":
		return textunicode.UTF16(textunicode.LittleEndian, textunicode.IgnoreBOM).NewDecoder()
	case "be":
		return textunicode.UTF16(textunicode.BigEndian, textunicode.IgnoreBOM).NewDecoder()
	}
	// Honors UTF-8 and UTF-16 byte order marks, defaulting to UTF-8.
	return textunicode.BOMOverride(textunicode.UTF8.NewDecoder())
}

// sniffUTF16 spots BOM-less UTF-16 exports, whose mostly-ASCII content puts
// a NUL in every other byte.
func sniffUTF16(raw []byte) string {
	if len(raw) < 4 || bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		return ""
	}
	sample := raw
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	pairs := len(sample) / 2
	evenNUL, oddNUL := 0, 0
	for i := 0; i+1 < len(sample); i += 2 {
		if sample[i] == 0 {
			evenNUL++
		}
		if sample[i+1] == 0 {
			oddNUL++
		}
	}
	switch {
	case oddNUL*10 >= pairs*4 && evenNUL*10 < pairs:
		return "le"
	case evenNUL*10 >= pairs*4 && oddNUL*10 < pairs:
		return "be"
	default:
		return ""
	}
}
