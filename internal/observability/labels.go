package observability

import "strconv"

func statusLabel(code int) string {
	return strconv.Itoa(code)
}

func isErrorStatus(label string) bool {
	code, err := strconv.Atoi(label)
	return err == nil && code >= 400
}

func boolLabel(b bool) string {
	return strconv.FormatBool(b)
}

func formatMS(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}

func parseMS(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
