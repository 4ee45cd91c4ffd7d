package scripted

import (
	"math"
	"time"
)

// Infinite is the delay of a prompt chunk: the stream stops there until input
// arrives, however long that takes.
const Infinite = time.Duration(math.MaxInt64)

// Chunk is one scheduled piece of simulated output.
type Chunk struct {
	Delay   time.Duration
	Payload []byte

	// immediate chunks ignore the stream's base delay (echoed input).
	immediate bool
}

// Text creates a chunk from a string.
func Text(delay time.Duration, s string) Chunk {
	return Chunk{Delay: delay, Payload: []byte(s)}
}

// Bytes creates a chunk from raw bytes. The bytes are copied.
func Bytes(delay time.Duration, p []byte) Chunk {
	return Chunk{Delay: delay, Payload: append([]byte(nil), p...)}
}

// Prompt creates a prompt marker.
func Prompt() Chunk {
	return Chunk{Delay: Infinite}
}

// IsPrompt reports whether c is a prompt marker.
func (c Chunk) IsPrompt() bool {
	return c.Delay == Infinite
}

func (c Chunk) String() string {
	if c.IsPrompt() {
		return "<prompt>"
	}
	return c.Delay.String() + " " + string(c.Payload)
}

// Script is the ordered list of chunks a stream plays.
type Script []Chunk

// Lines builds a script of zero-delay chunks, one per argument.
func Lines(texts ...string) Script {
	script := make(Script, 0, len(texts))
	for _, text := range texts {
		script = append(script, Text(0, text))
	}
	return script
}

// Size returns the number of payload bytes, prompts excluded.
func (s Script) Size() int {
	total := 0
	for _, c := range s {
		if !c.IsPrompt() {
			total += len(c.Payload)
		}
	}
	return total
}

// Prompts returns the number of prompt markers.
func (s Script) Prompts() int {
	n := 0
	for _, c := range s {
		if c.IsPrompt() {
			n++
		}
	}
	return n
}
