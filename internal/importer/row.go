package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrMissingField marks a row without a usable name or duration.
var ErrMissingField = errors.New("missing required field")

// Row is an import row after alias resolution. Duration is in hours and not
// yet rounded.
type Row struct {
	// Index is the zero-based position of the row in its batch.
	Index         int     `json:"-"`
	Name          string  `json:"name"`
	Duration      float64 `json:"duration"`
	PreferredDate *string `json:"preferredDate,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	TaskType      string  `json:"taskType,omitempty"`
}

type RowError struct {
	Index int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Index+1, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseRow resolves every logical field through its alias list. An
// unparseable preferred date is dropped rather than failing the row.
func ParseRow(index int, raw map[string]any) (Row, error) {
	r := Row{Index: index}

	v, ok := FieldName.Lookup(raw)
	if !ok {
		return r, &RowError{Index: index, Field: FieldName.Name, Err: ErrMissingField}
	}
	r.Name = strings.TrimSpace(stringify(v))

	v, ok = FieldDuration.Lookup(raw)
	if !ok {
		return r, &RowError{Index: index, Field: FieldDuration.Name, Err: ErrMissingField}
	}
	hours, err := toHours(v)
	if err != nil {
		return r, &RowError{Index: index, Field: FieldDuration.Name, Err: err}
	}
	r.Duration = hours

	if v, ok := FieldPreferredDate.Lookup(raw); ok {
		if d, ok := NormalizeDate(v); ok {
			r.PreferredDate = &d
		}
	}
	if v, ok := FieldNotes.Lookup(raw); ok {
		r.Notes = stringify(v)
	}
	if v, ok := FieldTaskType.Lookup(raw); ok {
		r.TaskType = strings.TrimSpace(stringify(v))
	}
	return r, nil
}

// Skipped is a row that could not be turned into a task.
type Skipped struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ParseRows parses rows in order, logging and collecting the ones it skips.
func ParseRows(raw []map[string]any, log zerolog.Logger) ([]Row, []Skipped) {
	rows := make([]Row, 0, len(raw))
	var skipped []Skipped
	for i, r := range raw {
		row, err := ParseRow(i, r)
		if err != nil {
			log.Warn().Err(err).Int("row", i+1).Msg("skipping import row")
			skipped = append(skipped, Skipped{Index: i, Reason: skipReason(err)})
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

// skipReason drops the row prefix; Skipped carries the index already.
func skipReason(err error) string {
	var rerr *RowError
	if errors.As(err, &rerr) {
		return fmt.Sprintf("%s: %v", rerr.Field, rerr.Err)
	}
	return err.Error()
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toHours(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", x.String())
		}
		f = n
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(s), "h"), "hours")
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", x)
		}
		f = n
	default:
		return 0, fmt.Errorf("invalid duration %v", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %v", v)
	}
	return f, nil
}
