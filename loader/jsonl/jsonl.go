// Package jsonl provides a Loader which writes each Row as a line of JSON
package jsonl

import (
	"context"
	"io"
	"sync"

	etl "github.com/go-sif/etl"
	jsoniter "github.com/json-iterator/go"
)

// Loader writes Rows to an io.Writer as JSON Lines, keeping entry order. It
// is safe for concurrent use; lines from one batch are never interleaved with
// another's.
type Loader struct {
	lock   sync.Mutex
	stream *jsoniter.Stream
	rows   int
}

// New creates a Loader writing to w
func New(w io.Writer) *Loader {
	return &Loader{stream: jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, w, 4096)}
}

// Load implements etl.Loader
func (l *Loader) Load(ctx context.Context, rows etl.Rows) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i := 0; i < rows.Len(); i++ {
		writeRow(l.stream, rows.At(i))
		l.stream.WriteRaw("\n")
		if l.stream.Error != nil {
			return l.stream.Error
		}
	}
	l.rows += rows.Len()
	return l.stream.Flush()
}

// Rows returns the number of Rows written so far
func (l *Loader) Rows() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.rows
}

func writeRow(stream *jsoniter.Stream, row etl.Row) {
	stream.WriteObjectStart()
	for i, e := range row.Entries() {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(e.Name)
		stream.WriteVal(e.Value)
	}
	stream.WriteObjectEnd()
}
