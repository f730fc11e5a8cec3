package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"etiquetas/internal"
	"etiquetas/internal/util"
)

// statusWord is the status column the vendor prints next to each checked value.
const statusWord = "Normal"

// sentinelSpan bounds how far a sentinel capture may reach past its label.
const sentinelSpan = 160

// Strategy is one way of locating a field: a compiled pattern with exactly
// one capture group.
type Strategy struct {
	Name string
	re   *regexp.Regexp
	// wrap keeps every line of the capture instead of only the first.
	wrap bool
	// stop truncates the capture where another report row begins.
	stop *regexp.Regexp
}

// FieldSpec lists the strategies for a field, tried in order.
type FieldSpec struct {
	Field      internal.Field
	Strategies []Strategy
}

// anchor builds the label prefix: the label must not be glued to a preceding
// letter or digit, is matched case-insensitively, and must be followed by
// whitespace or a colon before the value.
func anchor(labels ...string) string {
	alts := make([]string, 0, len(labels))
	for _, l := range labels {
		alts = append(alts, strings.Join(strings.Fields(regexp.QuoteMeta(l)), `\s+`))
	}
	return `(?:^|[^\p{L}\p{N}])(?i:` + strings.Join(alts, "|") + `)(?:[ \t]*[:：]\s*|\s+)`
}

func primary(name, labels, capture string) Strategy {
	return Strategy{Name: name, re: regexp.MustCompile(`(?m)` + anchor(strings.Split(labels, "|")...) + capture)}
}

// reportRows are the row labels the vendor prints. A line starting with one
// of them belongs to that row, never to the value above it.
var reportRows = []string{
	"Device Model", "Product Type", "Sales Model", "Device Color", "Hard Disk Capacity",
	"Serial Number", "IMEI", "IMEI2", "Battery Life", "Battery Health", "Charge Times",
	"iOS Version", "Report Date",
}

var rowStart = func() *regexp.Regexp {
	alts := make([]string, 0, len(reportRows))
	for _, l := range reportRows {
		alts = append(alts, strings.Join(strings.Fields(regexp.QuoteMeta(l)), `[ \t]+`))
	}
	return regexp.MustCompile(`(?mi)^[ \t]*(?:` + strings.Join(alts, "|") + `)(?:[^\p{L}\p{N}]|$)`)
}()

// sentinel captures lazily from the label up to the status word, for the
// layout where the value sits a couple of lines below its label. The capture
// ends before the next labelled row, so a blank value stays blank.
func sentinel(label string) Strategy {
	pattern := `(?ms)` + anchor(label) + `(.{1,` + strconv.Itoa(sentinelSpan) + `}?)(?:[^\p{L}\p{N}])` + statusWord + `(?:[^\p{L}\p{N}]|$)`
	return Strategy{Name: "sentinel", re: regexp.MustCompile(pattern), wrap: true, stop: rowStart}
}

// DefaultFieldSpecs is the extraction table for the diagnostic report.
func DefaultFieldSpecs() []FieldSpec {
	return []FieldSpec{
		{Field: internal.FieldModel, Strategies: []Strategy{
			primary("primary", "Device Model", `((?:iPhone|iPad|iPod)[^\r\n]*)`),
			primary("code", "Product Type|Device Model", `((?:iPhone|iPad|iPod|Watch)\d+,\d+)`),
			sentinel("Device Model"),
		}},
		{Field: internal.FieldColor, Strategies: []Strategy{
			{Name: "primary", re: regexp.MustCompile(`(?m)(?:^|[^\p{L}\p{N}])(?i:Device\s+Color)[ \t]*[:：]?[ \t]+([^\r\n]+)`)},
			sentinel("Device Color"),
		}},
		{Field: internal.FieldCapacity, Strategies: []Strategy{
			primary("primary", "Hard Disk Capacity", `(\d{1,4}[ \t]*[GT]B)(?:[^\p{L}\p{N}]|$)`),
			sentinel("Hard Disk Capacity"),
		}},
		{Field: internal.FieldSerial, Strategies: []Strategy{
			primary("primary", "Serial Number", `([A-Z0-9]{8,17})(?:[^\p{L}\p{N}]|$)`),
			sentinel("Serial Number"),
		}},
		{Field: internal.FieldIMEI, Strategies: []Strategy{
			primary("primary", "IMEI", `(\d(?:[ -]?\d){14})(?:\D|$)`),
			sentinel("IMEI"),
		}},
		{Field: internal.FieldBatteryHealth, Strategies: []Strategy{
			primary("primary", "Battery Life", `(\d{1,3}[ \t]*%)`),
			primary("health", "Battery Health", `(\d{1,3}[ \t]*%)`),
			sentinel("Battery Life"),
		}},
	}
}

// Extract returns the first non-empty cleaned capture and the name of the
// strategy that produced it.
func (s FieldSpec) Extract(text string) (string, string, error) {
	for _, st := range s.Strategies {
		m := st.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[1]
		if st.stop != nil {
			if loc := st.stop.FindStringIndex(raw); loc != nil {
				raw = raw[:loc[0]]
			}
		}
		if value := cleanCapture(raw, st.wrap); value != "" {
			return value, st.Name, nil
		}
	}
	return "", "", ErrFieldNotFound
}

// cleanCapture runs after matching only; patterns always see the raw text.
// Columns are cut on the raw capture, before artefact repair can widen the
// spacing inside the value.
func cleanCapture(raw string, wrap bool) string {
	s := cutStatus(raw)
	if !wrap {
		return util.CollapseSpaces(util.CleanArtifacts(util.CutColumn(s)))
	}
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = util.CutColumn(line); line != "" {
			parts = append(parts, line)
		}
	}
	return util.CollapseSpaces(util.CleanArtifacts(strings.Join(parts, " ")))
}

// cutStatus drops leading status words, then everything from the next one on.
func cutStatus(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		head := util.CutAtWord(s, statusWord)
		if len(head) == len(s) || strings.TrimSpace(head) != "" {
			return head
		}
		s = s[len(head)+len(statusWord):]
	}
}
