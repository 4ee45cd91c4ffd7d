package outputlog

import (
	"fmt"
	"regexp"
	"time"
)

// TimestampLayout is the layout of the timestamp field.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

var streamName = regexp.MustCompile(`^[a-zA-Z0-9_./-]{1,64}$`)

// Chunk is one record of a transcript.
type Chunk struct {
	Stream    string
	Timestamp time.Time
	Line      []byte // raw content, may include a trailing newline
	Error     error  // set by the reader when the record could not be parsed
}

// ValidStream reports whether name can be used as a stream name.
func ValidStream(name string) bool {
	return streamName.MatchString(name)
}

// FormatChunk encodes chunk as one record.
func FormatChunk(chunk Chunk) []byte {
	timestamp := chunk.Timestamp.UTC().Format(TimestampLayout)
	out := fmt.Appendf(nil, "%s %s %d: ", chunk.Stream, timestamp, len(chunk.Line))
	out = append(out, chunk.Line...)
	return append(out, '\n')
}
