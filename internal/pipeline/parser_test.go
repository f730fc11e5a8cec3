package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etiquetas/internal"
	"etiquetas/internal/catalog"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	blob, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return blob
}

func TestParseCurrentReport(t *testing.T) {
	p := NewParser(catalog.Default())

	res, err := p.Analyze(readFixture(t, "report_current.txt"))
	require.NoError(t, err)
	rec := res.Record
	assert.Equal(t, internal.DeviceRecord{
		Model:         "iPhone 12 Pro",
		Color:         "Azul pacífico",
		Capacity:      "128GB",
		Serial:        "F2LDQ0ABCD12",
		IMEI:          "356789101234567",
		BatteryHealth: "87%",
	}, rec)
	assert.Empty(t, res.Missing)
}

func TestParseLegacyReport(t *testing.T) {
	p := NewParser(catalog.Default())

	rec, err := p.Parse(readFixture(t, "report_legacy.txt"))
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12 Pro", rec.Model)
	assert.Equal(t, "Rojo", rec.Color)
	assert.Equal(t, "128GB", rec.Capacity)
	assert.Equal(t, "F2LDQ0ABCD12", rec.Serial)
	assert.Equal(t, "91%", rec.BatteryHealth)
	assert.Equal(t, internal.PlaceholderNA, rec.IMEI)
}

func TestParsePartialReportKeepsFieldsIndependent(t *testing.T) {
	p := NewParser(catalog.Default())

	res, err := p.Analyze(readFixture(t, "report_partial.txt"))
	require.NoError(t, err)
	rec := res.Record
	assert.Equal(t, "iPhone 11", rec.Model)
	assert.Equal(t, "Coral", rec.Color)
	assert.Equal(t, internal.PlaceholderNA, rec.Capacity)
	assert.Equal(t, internal.PlaceholderNA, rec.Serial)
	assert.Equal(t, []internal.Field{internal.FieldCapacity, internal.FieldSerial, internal.FieldIMEI, internal.FieldBatteryHealth}, res.Missing)
}

func TestParseBlankColorKeepsOtherRows(t *testing.T) {
	p := NewParser(catalog.Default())

	res, err := p.Analyze(readFixture(t, "report_blank_color.txt"))
	require.NoError(t, err)
	assert.Equal(t, internal.DeviceRecord{
		Model:         "iPhone 12 Pro",
		Color:         internal.PlaceholderNA,
		Capacity:      "128GB",
		Serial:        "F2LDQ0ABCD12",
		IMEI:          "356789101234567",
		BatteryHealth: "87%",
	}, res.Record)
	assert.Equal(t, []internal.Field{internal.FieldColor}, res.Missing)
}

func TestParseLegacyBlankModelKeepsOtherRows(t *testing.T) {
	p := NewParser(catalog.Default())

	res, err := p.Analyze(readFixture(t, "report_legacy_blank_model.txt"))
	require.NoError(t, err)
	assert.Equal(t, internal.DeviceRecord{
		Model:         internal.PlaceholderModel,
		Color:         "Dorado",
		Capacity:      "64GB",
		Serial:        "F2LDQ0ABCD12",
		IMEI:          internal.PlaceholderNA,
		BatteryHealth: "91%",
	}, res.Record)
	assert.Equal(t, []internal.Field{internal.FieldModel, internal.FieldIMEI}, res.Missing)
}

func TestParseFullwidthCommaWithSpace(t *testing.T) {
	p := NewParser(catalog.Default())

	rec, err := p.ParseText("Device Color   Front Black， Rear (PRODUCT)RED   Normal\n")
	require.NoError(t, err)
	assert.Equal(t, "Rojo", rec.Color)
}

func TestAnalyzeCountsOnlyDegradedFields(t *testing.T) {
	p := NewParser(catalog.Default())

	res, err := p.AnalyzeText("Device Model   iPhone\nSerial Number   F2LDQ0ABCD12\n")
	require.NoError(t, err)
	assert.Equal(t, internal.PlaceholderModel, res.Record.Model)
	assert.NotContains(t, res.Missing, internal.FieldModel)
	assert.NotContains(t, res.Missing, internal.FieldSerial)
	assert.Len(t, res.Missing, 4)
}

func TestParseAlwaysReturnsAllKeys(t *testing.T) {
	p := NewParser(catalog.Default())

	rec, err := p.ParseText("3uTools Verification Report\nnothing useful\n")
	require.NoError(t, err)
	assert.Equal(t, internal.EmptyRecord(), rec)

	m := rec.Map()
	assert.Len(t, m, 6)
	assert.Equal(t, "iPhone", m["model"])
	for _, key := range []string{"color", "capacity", "serial", "imei", "batteryHealth"} {
		assert.Equal(t, "N/A", m[key], key)
	}
}

func TestParseUnknownModelCodePassesThrough(t *testing.T) {
	p := NewParser(catalog.Default())

	rec, err := p.ParseText("Product Type   iPhone99,9\nSerial Number   F2LDQ0ABCD12\n")
	require.NoError(t, err)
	assert.Equal(t, "iPhone99,9", rec.Model)
	assert.Equal(t, "F2LDQ0ABCD12", rec.Serial)
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser(catalog.Default())
	raw := readFixture(t, "report_current.txt")

	first, err := p.Parse(raw)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseUnreadable(t *testing.T) {
	p := NewParser(catalog.Default())

	for _, raw := range [][]byte{nil, []byte("   \n\t"), {0xC0, 0xC1, 0xF5}} {
		_, err := p.Parse(raw)
		assert.ErrorIs(t, err, ErrUnreadableInput)
		assert.True(t, IsUnreadable(err))
	}
}

func TestManualEntry(t *testing.T) {
	p := NewParser(catalog.Default())

	rec := p.Manual(ManualEntry{
		Model:    "iPhone13,3",
		Color:    "midnight green",
		Capacity: "64 gb",
		Serial:   "bad",
		IMEI:     "N/A",
	})
	assert.Equal(t, "iPhone 12 Pro", rec.Model)
	assert.Equal(t, "Verde noche", rec.Color)
	assert.Equal(t, "64GB", rec.Capacity)
	assert.Equal(t, internal.PlaceholderNA, rec.Serial)
	assert.Equal(t, internal.PlaceholderNA, rec.IMEI)
	assert.Equal(t, internal.PlaceholderNA, rec.BatteryHealth)

	res := p.AnalyzeManual(ManualEntry{Model: "iPhone 15", IMEI: "N/A", Serial: "bad"})
	assert.Equal(t, []internal.Field{internal.FieldColor, internal.FieldCapacity, internal.FieldSerial, internal.FieldBatteryHealth}, res.Missing)
}

func TestOverrideIMEI(t *testing.T) {
	p := NewParser(catalog.Default())
	rec := internal.EmptyRecord()

	assert.Equal(t, "356789101234567", p.OverrideIMEI(rec, "356789 101234567").IMEI)
	assert.Equal(t, internal.PlaceholderNA, p.OverrideIMEI(rec, "12345").IMEI)
	assert.Equal(t, internal.PlaceholderNA, p.OverrideIMEI(rec, "").IMEI)
}
