package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// EncodeKeyToken creates a base64 encoded cursor from a single ordering key,
// e.g. an account code for code-ordered listings.
func EncodeKeyToken(key string) string {
	return base64.StdEncoding.EncodeToString([]byte(key))
}

// DecodeKeyToken parses a single-key cursor back into its ordering key.
func DecodeKeyToken(token string) (string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	return string(decodedBytes), nil
}

// EncodeTimeToken creates a base64 encoded cursor from a timestamp and a
// tie-breaking ID, for listings ordered by (time, id).
func EncodeTimeToken(t time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s", t.Format(timeFormat), id)
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeTimeToken parses a time cursor back into its timestamp and ID.
func DecodeTimeToken(token string) (time.Time, string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (split)")
	}
	t, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid pagination token format (time parse): %w", err)
	}
	return t, parts[1], nil
}
