package metadata

import "strings"

// Converter normalizes a resolved value.
type Converter func(string) string

var converters = map[string]Converter{
	FieldDuration:     convertDuration,
	FieldCreationDate: convertDate,
}

// convertDuration turns "12.5 s (approx)" into "00:00:12.5".
func convertDuration(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "(approx)", ""))
	if strings.HasSuffix(value, "s") {
		value = strings.TrimSpace(strings.TrimSuffix(value, "s"))
		return "00:00:" + value
	}
	return value
}

// convertDate drops a timezone suffix from "YYYY:MM:DD HH:MM:SS+hh:mm".
func convertDate(value string) string {
	const stamp = len("2006:01:02 15:04:05")
	if len(value) <= stamp {
		return value
	}
	if value[4] != ':' || value[7] != ':' || value[10] != ' ' {
		return value
	}
	switch value[stamp] {
	case '+', '-', 'Z', '.':
		return value[:stamp]
	}
	return value
}
