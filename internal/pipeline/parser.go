package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"etiquetas/internal"
	"etiquetas/internal/catalog"
	"etiquetas/internal/util"
)

// Parser turns one diagnostic report into a DeviceRecord. It holds no
// mutable state, so a single Parser may serve concurrent callers.
type Parser struct {
	specs      []FieldSpec
	normalizer *Normalizer
	log        zerolog.Logger
}

type ParserOption func(*Parser)

func WithLogger(log zerolog.Logger) ParserOption {
	return func(p *Parser) { p.log = log }
}

// WithFieldSpecs replaces the extraction table.
func WithFieldSpecs(specs []FieldSpec) ParserOption {
	return func(p *Parser) { p.specs = specs }
}

func NewParser(tables *catalog.Tables, opts ...ParserOption) *Parser {
	p := &Parser{
		specs:      DefaultFieldSpecs(),
		normalizer: NewNormalizer(tables),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ManualEntry carries values typed in by an operator instead of a report.
type ManualEntry struct {
	Model         string `json:"model"`
	Color         string `json:"color"`
	Capacity      string `json:"capacity"`
	Serial        string `json:"serial"`
	IMEI          string `json:"imei"`
	BatteryHealth string `json:"batteryHealth"`
}

func (e ManualEntry) get(f internal.Field) string {
	return internal.DeviceRecord(e).Get(f)
}

// Result is a record together with the fields that fell back to their
// placeholder while building it.
type Result struct {
	Record  internal.DeviceRecord
	Missing []internal.Field
}

func (r Result) with(f internal.Field, value string) Result {
	r.Record = r.Record.With(f, value)
	kept := make([]internal.Field, 0, len(r.Missing))
	for _, m := range r.Missing {
		if m != f {
			kept = append(kept, m)
		}
	}
	r.Missing = kept
	return r
}

func emptyResult() Result {
	return Result{Record: internal.EmptyRecord(), Missing: append([]internal.Field(nil), internal.Fields...)}
}

// Parse decodes raw report bytes and extracts every field. The only error
// it returns is ErrUnreadableInput.
func (p *Parser) Parse(raw []byte) (internal.DeviceRecord, error) {
	res, err := p.Analyze(raw)
	return res.Record, err
}

// ParseText extracts every field from already decoded report text.
func (p *Parser) ParseText(text string) (internal.DeviceRecord, error) {
	res, err := p.AnalyzeText(text)
	return res.Record, err
}

// Analyze is Parse that also reports which fields were degraded.
func (p *Parser) Analyze(raw []byte) (Result, error) {
	text, err := DecodeReport(raw)
	if err != nil {
		return Result{}, err
	}
	return p.AnalyzeText(text)
}

func (p *Parser) AnalyzeText(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: empty report", ErrUnreadableInput)
	}

	res := emptyResult()
	for _, spec := range p.specs {
		value, err := p.field(spec, text)
		if err != nil {
			p.log.Debug().Str("field", string(spec.Field)).Err(err).Msg("field degraded to placeholder")
			continue
		}
		res = res.with(spec.Field, value)
	}
	return res, nil
}

func (p *Parser) field(spec FieldSpec, text string) (string, error) {
	raw, strategy, err := spec.Extract(text)
	if err != nil {
		return "", err
	}
	value, err := p.normalizer.Normalize(spec.Field, raw)
	if err != nil {
		return "", err
	}
	p.log.Debug().Str("field", string(spec.Field)).Str("strategy", strategy).Msg("field extracted")
	return value, nil
}

// Manual builds a record from operator input with the same normalization
// and placeholders as a parsed report.
func (p *Parser) Manual(entry ManualEntry) internal.DeviceRecord {
	return p.AnalyzeManual(entry).Record
}

// AnalyzeManual is Manual that also reports which fields were degraded. A
// placeholder typed in by the operator counts as a given value.
func (p *Parser) AnalyzeManual(entry ManualEntry) Result {
	res := emptyResult()
	for _, f := range internal.Fields {
		raw := strings.TrimSpace(entry.get(f))
		if raw == "" {
			continue
		}
		if raw == internal.Placeholder(f) {
			res = res.with(f, raw)
			continue
		}
		value, err := p.normalizer.Normalize(f, raw)
		if err != nil {
			p.log.Debug().Str("field", string(f)).Err(err).Msg("manual value rejected")
			continue
		}
		res = res.with(f, value)
	}
	return res
}

// OverrideIMEI replaces the record's IMEI with an externally supplied one
// when it is a valid 15 digit identifier.
func (p *Parser) OverrideIMEI(rec internal.DeviceRecord, imei string) internal.DeviceRecord {
	if value, ok := p.overrideIMEI(imei); ok {
		return rec.With(internal.FieldIMEI, value)
	}
	return rec
}

func (p *Parser) overrideIMEI(imei string) (string, bool) {
	if strings.TrimSpace(imei) == "" {
		return "", false
	}
	value, ok := util.ParseIMEI(imei)
	if !ok {
		p.log.Debug().Str("imei", imei).Msg("ignoring invalid imei override")
	}
	return value, ok
}

// IsUnreadable reports whether err means the report could not be read.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadableInput)
}
