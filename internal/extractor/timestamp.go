package extractor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ralt/bundlemeta/internal/models"
)

// BuildTimestampLayout is the format of Build-Timestamp in NAR manifests
const BuildTimestampLayout = "2006-01-02T15:04:05Z"

// TimestampParser converts a Build-Timestamp value into a time
type TimestampParser func(string) (time.Time, error)

// StandardTimestamp parses BuildTimestampLayout as UTC
func StandardTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(BuildTimestampLayout, s, time.UTC)
}

// EpochMillisTimestamp parses milliseconds since the Unix epoch
func EpochMillisTimestamp(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseTimestamp(s string, parsers []TimestampParser) (time.Time, error) {
	var lastErr error
	for _, parse := range parsers {
		t, err := parse(s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no timestamp formats configured")
	}
	return time.Time{}, &models.BundleError{
		Type: models.ErrBadBuildTimestamp,
		Err:  fmt.Errorf("cannot parse build timestamp %q: %w", s, lastErr),
	}
}
