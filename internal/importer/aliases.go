// Package importer turns loosely shaped spreadsheet rows into validated
// task records.
package importer

import (
	"strings"
)

// Field is a logical import column and the header names that may carry it,
// in priority order.
type Field struct {
	Name    string
	Aliases []string
}

var (
	FieldName = Field{Name: "name", Aliases: []string{
		"Task Name", "task name", "taskName", "Task", "Name", "name",
	}}
	FieldDuration = Field{Name: "duration", Aliases: []string{
		"Duration (hours)", "Duration hours", "Duration", "duration", "durationHours", "Hours", "hours",
	}}
	FieldPreferredDate = Field{Name: "preferredDate", Aliases: []string{
		"Preferred Date", "preferred date", "preferredDate", "Date", "date",
	}}
	FieldNotes = Field{Name: "notes", Aliases: []string{
		"Notes", "notes",
	}}
	FieldTaskType = Field{Name: "taskType", Aliases: []string{
		"Task Type", "task type", "taskType", "Type", "type",
	}}
)

// Aliases lists every logical field in the order rows are read.
var Aliases = []Field{FieldName, FieldDuration, FieldPreferredDate, FieldNotes, FieldTaskType}

// Lookup returns the value of the first alias present with a non-empty
// value. Blank strings and zero numbers count as empty.
func (f Field) Lookup(row map[string]any) (any, bool) {
	for _, alias := range f.Aliases {
		v, ok := row[alias]
		if !ok || isBlank(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case bool:
		return !x
	default:
		return false
	}
}
