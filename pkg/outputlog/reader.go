package outputlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type OutputLogReader interface {
	// StreamReader returns an io.Reader over the content of one stream.
	// Other streams and the timestamps are skipped.
	StreamReader(stream string) io.Reader

	// Channel emits the records in order. A record with Error set is the
	// last one.
	Channel() <-chan Chunk

	// All returns the content of every stream, keyed by stream name.
	All() map[string][]byte
}

type OutputLogIoReader struct {
	reader io.Reader
}

var _ OutputLogReader = &OutputLogIoReader{}

func NewOutputLogReader(reader io.Reader) (OutputLogReader, error) {
	if reader == nil {
		return nil, errors.New("nil reader")
	}
	return &OutputLogIoReader{reader: reader}, nil
}

func (o *OutputLogIoReader) Channel() <-chan Chunk {
	channel := make(chan Chunk)
	go func() {
		defer close(channel)
		br := bufio.NewReader(o.reader)
		for {
			chunk, ok := readChunk(br)
			if !ok {
				if chunk.Error != nil {
					channel <- chunk
				}
				return
			}
			channel <- chunk
		}
	}()
	return channel
}

func (o *OutputLogIoReader) StreamReader(stream string) io.Reader {
	return &ChannelReader{stream: stream, channel: o.Channel()}
}

func (o *OutputLogIoReader) All() map[string][]byte {
	result := make(map[string][]byte)
	for chunk := range o.Channel() {
		if chunk.Error != nil {
			break
		}
		result[chunk.Stream] = append(result[chunk.Stream], chunk.Line...)
	}
	return result
}

// ChannelReader turns the records of one stream into an io.Reader.
type ChannelReader struct {
	stream  string
	channel <-chan Chunk
	rest    []byte // content of the last record that did not fit into p
	err     error
}

func (cr *ChannelReader) Read(p []byte) (int, error) {
	if len(cr.rest) > 0 {
		n := copy(p, cr.rest)
		cr.rest = cr.rest[n:]
		return n, nil
	}
	if cr.err != nil {
		return 0, cr.err
	}
	for chunk := range cr.channel {
		if chunk.Error != nil {
			cr.err = chunk.Error
			return 0, cr.err
		}
		if chunk.Stream != cr.stream || len(chunk.Line) == 0 {
			continue
		}
		n := copy(p, chunk.Line)
		cr.rest = chunk.Line[n:]
		return n, nil
	}
	cr.err = io.EOF
	return 0, io.EOF
}

// readChunk parses one record. ok is false at a clean end of input or when
// the record is malformed, in which case chunk.Error says why.
func readChunk(br *bufio.Reader) (chunk Chunk, ok bool) {
	stream, err := br.ReadString(' ')
	if err != nil {
		if err == io.EOF && stream == "" {
			return chunk, false
		}
		chunk.Error = fmt.Errorf("reading stream: %w", unexpected(err))
		return chunk, false
	}
	chunk.Stream = strings.TrimSuffix(stream, " ")
	if !ValidStream(chunk.Stream) {
		chunk.Error = fmt.Errorf("invalid stream name %q", chunk.Stream)
		return chunk, false
	}

	timestamp, err := br.ReadString(' ')
	if err != nil {
		chunk.Error = fmt.Errorf("reading timestamp: %w", unexpected(err))
		return chunk, false
	}
	chunk.Timestamp, err = time.Parse(time.RFC3339Nano, strings.TrimSuffix(timestamp, " "))
	if err != nil {
		chunk.Error = fmt.Errorf("parsing timestamp: %w", err)
		return chunk, false
	}

	length, err := br.ReadString(':')
	if err != nil {
		chunk.Error = fmt.Errorf("reading length: %w", unexpected(err))
		return chunk, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(length, ":"))
	if err != nil || n < 0 {
		chunk.Error = fmt.Errorf("parsing length %q: invalid", length)
		return chunk, false
	}

	if b, err := br.ReadByte(); err != nil || b != ' ' {
		chunk.Error = fmt.Errorf("expected space after length, got %q (%v)", b, err)
		return chunk, false
	}

	chunk.Line = make([]byte, n)
	if _, err := io.ReadFull(br, chunk.Line); err != nil {
		chunk.Error = fmt.Errorf("reading content (%d bytes): %w", n, unexpected(err))
		return chunk, false
	}

	if b, err := br.ReadByte(); err != nil || b != '\n' {
		chunk.Error = fmt.Errorf("expected newline separator, got %q (%v)", b, err)
		return chunk, false
	}
	return chunk, true
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
