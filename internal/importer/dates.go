package importer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Largest serial a spreadsheet can hold (9999-12-31).
const maxSerial = 2958465

// NormalizeDate converts an ISO string, a spreadsheet serial number or a
// loosely formatted date string to YYYY-MM-DD. Anything else is dropped.
func NormalizeDate(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case float64:
		return fromSerial(x)
	case float32:
		return fromSerial(float64(x))
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return "", false
		}
		return fromSerial(f)
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.Format(models.DateLayout), true
	case string:
		return normalizeDateString(x)
	default:
		return "", false
	}
}

func normalizeDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if isoDate.MatchString(s) {
		if _, err := time.Parse(models.DateLayout, s); err != nil {
			return "", false
		}
		return s, true
	}

	// spreadsheet readers hand date cells over as raw serials
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", false
	}
	return t.Format(models.DateLayout), true
}

// fromSerial decodes a spreadsheet serial day number. The time of day is
// ignored. Serials below 61 predate the phantom 1900-02-29 and use a base
// one day later.
func fromSerial(serial float64) (string, bool) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerial {
		return "", false
	}
	days := int(math.Floor(serial))

	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if days < 61 {
		base = base.AddDate(0, 0, 1)
	}
	return base.AddDate(0, 0, days).Format(models.DateLayout), true
}
