package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"iso passthrough", "2025-11-04", "2025-11-04", true},
		{"iso invalid", "2025-13-45", "", false},
		{"serial float", 45965.0, "2025-11-04", true},
		{"serial with time", 45965.75, "2025-11-04", true},
		{"serial int", 45965, "2025-11-04", true},
		{"serial string", "45965", "2025-11-04", true},
		{"early serial", 1.0, "1900-01-01", true},
		{"serial before phantom leap day", 59.0, "1900-02-28", true},
		{"serial after phantom leap day", 61.0, "1900-03-01", true},
		{"zero serial", 0.0, "", false},
		{"us slash date", "11/04/2025", "2025-11-04", true},
		{"long form", "November 4, 2025", "2025-11-04", true},
		{"rfc3339", "2025-11-04T10:00:00Z", "2025-11-04", true},
		{"garbage", "next tuesday-ish", "", false},
		{"empty", "  ", "", false},
		{"nil", nil, "", false},
		{"bool", true, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeDate(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFieldLookupPriority(t *testing.T) {
	row := map[string]any{"Name": "fallback", "Task Name": "primary", "Task": ""}
	v, ok := FieldName.Lookup(row)
	require.True(t, ok)
	assert.Equal(t, "primary", v)

	row = map[string]any{"Task Name": "  ", "Task": "second"}
	v, ok = FieldName.Lookup(row)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	_, ok = FieldDuration.Lookup(map[string]any{"Duration": 0.0})
	assert.False(t, ok)
}

func TestParseRow(t *testing.T) {
	row, err := ParseRow(0, map[string]any{
		"Task Name":        " Write report ",
		"Duration (hours)": "2.5",
		"Preferred Date":   45965.0,
		"notes":            "quarterly",
		"type":             "review",
	})
	require.NoError(t, err)
	assert.Equal(t, "Write report", row.Name)
	assert.Equal(t, 2.5, row.Duration)
	assert.Equal(t, "2025-11-04", models.StringValue(row.PreferredDate))
	assert.Equal(t, "quarterly", row.Notes)
	assert.Equal(t, "review", row.TaskType)
}

func TestParseRowDropsBadDate(t *testing.T) {
	row, err := ParseRow(0, map[string]any{"Task": "x", "Hours": 1.0, "Date": "someday"})
	require.NoError(t, err)
	assert.Nil(t, row.PreferredDate)
}

func TestParseRowErrors(t *testing.T) {
	_, err := ParseRow(2, map[string]any{"Duration": 1.0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "name", rowErr.Field)
	assert.Contains(t, err.Error(), "row 3")

	_, err = ParseRow(0, map[string]any{"Name": "x"})
	assert.True(t, errors.Is(err, ErrMissingField))

	_, err = ParseRow(0, map[string]any{"Name": "x", "Duration": "soon"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingField))

	_, err = ParseRow(0, map[string]any{"Name": "x", "Duration": -1.0})
	assert.Error(t, err)
}

func TestParseRowsSkipsAndCounts(t *testing.T) {
	rows, skipped := ParseRows([]map[string]any{
		{"Name": "a", "Duration": 1.0},
		{"Name": "missing duration"},
		{"Duration": 2.0},
		{"Name": "b", "Duration": "3h"},
	}, zerolog.Nop())

	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Name)
	assert.Equal(t, 3.0, rows[1].Duration)
	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, 2, skipped[1].Index)
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffTask Name,Duration,Preferred Date\nReview,2,2025-11-04\n,,\nDeploy,1.5,\n"
	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Review", rows[0]["Task Name"])
	assert.Equal(t, "2", rows[0]["Duration"])
	assert.Equal(t, "Deploy", rows[1]["Task Name"])
}

func TestReadJSON(t *testing.T) {
	rows, err := ReadJSON(strings.NewReader(`[{"name":"a","duration":1}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0]["duration"])

	rows, err = ReadJSON(strings.NewReader(`{"tasks":[{"name":"a","duration":1},{"name":"b","duration":2}]}`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadJSON(strings.NewReader(`{"tasks":`))
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Task Name", "Duration", "Preferred Date"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Inspect", 2, 45965}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Paint", 1.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	raw, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, raw, 2)

	rows, skipped := ParseRows(raw, zerolog.Nop())
	require.Empty(t, skipped)
	require.Len(t, rows, 2)
	assert.Equal(t, "Inspect", rows[0].Name)
	assert.Equal(t, 2.0, rows[0].Duration)
	assert.Equal(t, "2025-11-04", models.StringValue(rows[0].PreferredDate))
	assert.Nil(t, rows[1].PreferredDate)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "xlsx", Format("plan.XLSX"))
	assert.Equal(t, "csv", Format("plan.csv"))
	assert.Equal(t, "json", Format("backup.json"))
}

func TestStagingManager(t *testing.T) {
	sm := NewStagingManager()

	assert.Equal(t, 1, sm.Add("s1", map[string]any{"Name": "a"}))
	assert.Equal(t, 2, sm.Add("s1", map[string]any{"Name": "b"}))
	sm.Add("s2", map[string]any{"Name": "c"})

	assert.Len(t, sm.Peek("s1"), 2)

	rows := sm.GetAndClear("s1")
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["Name"])
	assert.Empty(t, sm.GetAndClear("s1"))

	sm.Discard("s2")
	assert.Empty(t, sm.Peek("s2"))
	assert.NotNil(t, sm.Peek("missing"))
}
