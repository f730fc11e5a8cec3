package internal

import "strings"

type Field string

const (
	FieldModel         Field = "model"
	FieldColor         Field = "color"
	FieldCapacity      Field = "capacity"
	FieldSerial        Field = "serial"
	FieldIMEI          Field = "imei"
	FieldBatteryHealth Field = "batteryHealth"
)

// Fields is the fixed key set handed to the label renderer, in label order.
var Fields = []Field{FieldModel, FieldColor, FieldCapacity, FieldSerial, FieldIMEI, FieldBatteryHealth}

const (
	PlaceholderNA    = "N/A"
	PlaceholderModel = "iPhone"
)

// Placeholder returns the value a field degrades to when nothing usable was found.
func Placeholder(f Field) string {
	if f == FieldModel {
		return PlaceholderModel
	}
	return PlaceholderNA
}

// DeviceRecord is built fresh per report or manual entry and passed by value.
type DeviceRecord struct {
	Model         string `json:"model"`
	Color         string `json:"color"`
	Capacity      string `json:"capacity"`
	Serial        string `json:"serial"`
	IMEI          string `json:"imei"`
	BatteryHealth string `json:"batteryHealth"`
}

// EmptyRecord returns a record where every field holds its placeholder.
func EmptyRecord() DeviceRecord {
	return DeviceRecord{
		Model:         PlaceholderModel,
		Color:         PlaceholderNA,
		Capacity:      PlaceholderNA,
		Serial:        PlaceholderNA,
		IMEI:          PlaceholderNA,
		BatteryHealth: PlaceholderNA,
	}
}

func (r DeviceRecord) Get(f Field) string {
	switch f {
	case FieldModel:
		return r.Model
	case FieldColor:
		return r.Color
	case FieldCapacity:
		return r.Capacity
	case FieldSerial:
		return r.Serial
	case FieldIMEI:
		return r.IMEI
	case FieldBatteryHealth:
		return r.BatteryHealth
	default:
		return ""
	}
}

// With returns a copy of r with field f set to value.
func (r DeviceRecord) With(f Field, value string) DeviceRecord {
	switch f {
	case FieldModel:
		r.Model = value
	case FieldColor:
		r.Color = value
	case FieldCapacity:
		r.Capacity = value
	case FieldSerial:
		r.Serial = value
	case FieldIMEI:
		r.IMEI = value
	case FieldBatteryHealth:
		r.BatteryHealth = value
	}
	return r
}

// Map exposes the record with all six keys present.
func (r DeviceRecord) Map() map[string]string {
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		out[string(f)] = r.Get(f)
	}
	return out
}

// FieldNames joins field identities with commas, in the order given.
func FieldNames(fields []Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return strings.Join(names, ",")
}

type ReportKind string

const (
	KindText  ReportKind = "txt"
	KindPDF   ReportKind = "pdf"
	KindHTML  ReportKind = "html"
	KindEmail ReportKind = "eml"

	// KindManual marks runs built from operator input rather than a report.
	KindManual ReportKind = "manual"
)

type RunStatus string

const (
	RunRendered RunStatus = "rendered"
	RunFailed   RunStatus = "failed"
	RunExpired  RunStatus = "expired"
)

type LabelRun struct {
	ID           int
	TraceID      string
	Source       string
	Kind         string
	Status       string
	PDFName      string
	PreviewName  string
	MissingCount int
	CreatedAt    string
}

type CodeOverride struct {
	Kind      string
	Token     string
	Canonical string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
