package shape

import "strings"

// TruncateDate keeps everything before the first space, so
// "2024-05-01 10:30:00" becomes "2024-05-01". Other values pass through
// trimmed.
func TruncateDate(value string) string {
	value = strings.TrimSpace(value)
	if index := strings.IndexByte(value, ' '); index >= 0 {
		return value[:index]
	}
	return value
}
