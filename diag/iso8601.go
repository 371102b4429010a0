package diag

import (
	"errors"
	"time"
)

// TimestampSize is the buffer length Iso8601Time needs, trailing NUL
// included: "YYYY-MM-DDThh:mm:ss.mmm+zzzz".
const TimestampSize = 29

// ErrBufferTooSmall indicates a caller-supplied buffer cannot hold a
// formatted timestamp.
var ErrBufferTooSmall = errors.New("diag: buffer smaller than iso8601 timestamp")

const iso8601Layout = "2006-01-02T15:04:05.000-0700"

// Iso8601Time formats millisSinceEpoch into buf as an ISO-8601 timestamp
// with millisecond precision and numeric zone offset, e.g.
// "1970-01-01T00:00:00.000+0000" for zero in UTC. It returns the formatted
// slice of buf. Crash-path callers hand in a stack buffer and must get an
// error, not a panic, when it is too small.
func Iso8601Time(millisSinceEpoch int64, buf []byte, utc bool) ([]byte, error) {
	if len(buf) < TimestampSize {
		return nil, ErrBufferTooSmall
	}
	t := time.UnixMilli(millisSinceEpoch)
	if utc {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	out := t.AppendFormat(buf[:0], iso8601Layout)
	return out, nil
}
