package parser

import (
	"fmt"
	"strings"
	"time"
)

// isoTimeFormat selects ISO-8601 parsing instead of a Go layout.
const isoTimeFormat = "<ISO>"

// monthNames maps a locale to month-name replacements applied before parsing.
var monthNames = map[string]*strings.Replacer{
	"ru": strings.NewReplacer(
		"Января", "01", "января", "01",
		"Февраля", "02", "февраля", "02",
		"Марта", "03", "марта", "03",
		"Апреля", "04", "апреля", "04",
		"Мая", "05", "мая", "05",
		"Июня", "06", "июня", "06",
		"Июля", "07", "июля", "07",
		"Августа", "08", "августа", "08",
		"Сентября", "09", "сентября", "09",
		"Октября", "10", "октября", "10",
		"Ноября", "11", "ноября", "11",
		"Декабря", "12", "декабря", "12",
	),
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type timeParser struct {
	layout   string
	location *time.Location
	months   *strings.Replacer
}

func newTimeParser(layout, zone, locale string) (*timeParser, error) {
	if layout == "" {
		return nil, fmt.Errorf("time format is required")
	}

	p := &timeParser{layout: layout, location: time.UTC}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("time zone %s: %w", zone, err)
		}
		p.location = loc
	}

	if locale != "" {
		replacer, ok := monthNames[locale]
		if !ok {
			return nil, fmt.Errorf("month names for locale %s are not supported", locale)
		}
		p.months = replacer
	}
	return p, nil
}

// parse returns epoch seconds. Layouts without a zone are read in the configured location.
func (p *timeParser) parse(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if p.months != nil {
		value = p.months.Replace(value)
	}

	if p.layout != isoTimeFormat {
		t, err := time.ParseInLocation(p.layout, value, p.location)
		if err != nil {
			return 0, err
		}
		return t.Unix(), nil
	}

	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, value, p.location)
		if err == nil {
			return t.Unix(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}
