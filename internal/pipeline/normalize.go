package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"etiquetas/internal"
	"etiquetas/internal/catalog"
	"etiquetas/internal/util"
)

var (
	modelCodePattern = regexp.MustCompile(`(?i)^(?:iPhone|iPad|iPod|Watch)\d+,\d+$`)

	// Housing descriptions the vendor prints before the actual colour name.
	colorNoise = []*regexp.Regexp{
		regexp.MustCompile(`^front\s*:?\s*(?:black|white)\s*[,;/]\s*(?:rear|back)\s*:?\s*`),
		regexp.MustCompile(`^(?:rear|back)\s*:\s*`),
	}
)

// Normalizer maps extracted strings to their label form using read-only
// lookup tables.
type Normalizer struct {
	tables *catalog.Tables
}

func NewNormalizer(tables *catalog.Tables) *Normalizer {
	if tables == nil {
		tables = catalog.Default()
	}
	return &Normalizer{tables: tables}
}

// Normalize returns the label value for field f, or ErrNormalizationRejected.
func (n *Normalizer) Normalize(f internal.Field, raw string) (string, error) {
	var (
		value string
		ok    bool
	)
	switch f {
	case internal.FieldColor:
		value, ok = n.Color(raw)
	case internal.FieldModel:
		value, ok = n.Model(raw)
	case internal.FieldCapacity:
		value, ok = util.ParseCapacity(raw)
	case internal.FieldBatteryHealth:
		value, ok = util.ParsePercent(raw)
	case internal.FieldSerial:
		value, ok = util.ParseSerial(raw)
	case internal.FieldIMEI:
		value, ok = util.ParseIMEI(raw)
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrNormalizationRejected, f)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s %q", ErrNormalizationRejected, f, raw)
	}
	return value, nil
}

// Color folds the raw description, drops housing noise and looks up the
// longest known token. Unknown colours are title-cased as they are.
func (n *Normalizer) Color(raw string) (string, bool) {
	folded := foldColor(raw)
	if folded == "" {
		return "", false
	}
	if canonical, ok := n.tables.LookupColor(folded); ok {
		return canonical, true
	}
	return util.TitleCase(folded), true
}

func foldColor(raw string) string {
	s := util.CollapseSpaces(strings.ToLower(util.CleanArtifacts(raw)))
	for _, re := range colorNoise {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.Trim(s, " ,;/-")
	return dedupePhrase(s)
}

// dedupePhrase turns "pacific blue pacific blue" into "pacific blue".
func dedupePhrase(s string) string {
	words := strings.Fields(s)
	if len(words) < 2 || len(words)%2 != 0 {
		return s
	}
	half := len(words) / 2
	for i := 0; i < half; i++ {
		if words[i] != words[half+i] {
			return s
		}
	}
	return strings.Join(words[:half], " ")
}

// Model resolves vendor product codes. Anything else, including codes the
// table does not know, passes through trimmed.
func (n *Normalizer) Model(raw string) (string, bool) {
	s := util.CollapseSpaces(util.CleanArtifacts(raw))
	if s == "" {
		return "", false
	}
	if modelCodePattern.MatchString(s) {
		if name, ok := n.tables.LookupModel(s); ok {
			return name, true
		}
	}
	return s, true
}
