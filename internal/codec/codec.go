// Package codec serializes cache entries for the cache backends. Entries are
// gob-encoded, and lz4-compressed unless the caller compresses them itself.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	etl "github.com/go-sif/etl"
	"github.com/pierrec/lz4"
)

func init() {
	gob.Register(time.Time{})
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

type wireRow struct {
	Names  []string
	Values []interface{}
}

type wireEntry struct {
	Key   string
	Kind  etl.EntryKind
	Row   wireRow
	Rows  []wireRow
	Index []string
}

func toWireRow(row etl.Row) wireRow {
	entries := row.Entries()
	w := wireRow{Names: make([]string, len(entries)), Values: make([]interface{}, len(entries))}
	for i, e := range entries {
		w.Names[i] = e.Name
		w.Values[i] = e.Value
	}
	return w
}

func fromWireRow(w wireRow) (etl.Row, error) {
	if len(w.Names) != len(w.Values) {
		return etl.Row{}, fmt.Errorf("row has %d names but %d values", len(w.Names), len(w.Values))
	}
	entries := make([]etl.Entry, len(w.Names))
	for i := range w.Names {
		entries[i] = etl.Entry{Name: w.Names[i], Value: w.Values[i]}
	}
	return etl.NewRow(entries...)
}

// Encode writes key and entry to w, lz4-compressed
func Encode(w io.Writer, key string, entry etl.CacheEntry) error {
	compressor := lz4.NewWriter(w)
	if err := encodeGob(compressor, key, entry); err != nil {
		return err
	}
	return compressor.Close()
}

func encodeGob(w io.Writer, key string, entry etl.CacheEntry) error {
	we := wireEntry{Key: key, Kind: entry.Kind()}
	switch entry.Kind() {
	case etl.RowEntry:
		row, _ := entry.Row()
		we.Row = toWireRow(row)
	case etl.RowsEntry:
		rows, _ := entry.Rows()
		we.Rows = make([]wireRow, rows.Len())
		for i := 0; i < rows.Len(); i++ {
			we.Rows[i] = toWireRow(rows.At(i))
		}
	case etl.IndexEntry:
		we.Index, _ = entry.Index()
	default:
		return fmt.Errorf("cannot encode empty cache entry for key %s", key)
	}
	if err := gob.NewEncoder(w).Encode(&we); err != nil {
		return fmt.Errorf("unable to encode cache entry %s: %w", key, err)
	}
	return nil
}

// Decode reads an entry written by Encode, returning the key it was stored under
func Decode(r io.Reader) (string, etl.CacheEntry, error) {
	return decodeGob(lz4.NewReader(r))
}

func decodeGob(r io.Reader) (string, etl.CacheEntry, error) {
	var we wireEntry
	if err := gob.NewDecoder(r).Decode(&we); err != nil {
		return "", etl.CacheEntry{}, err
	}
	switch we.Kind {
	case etl.RowEntry:
		row, err := fromWireRow(we.Row)
		if err != nil {
			return we.Key, etl.CacheEntry{}, err
		}
		return we.Key, etl.RowCacheEntry(row), nil
	case etl.RowsEntry:
		rows := make([]etl.Row, len(we.Rows))
		for i, wr := range we.Rows {
			row, err := fromWireRow(wr)
			if err != nil {
				return we.Key, etl.CacheEntry{}, err
			}
			rows[i] = row
		}
		return we.Key, etl.RowsCacheEntry(etl.NewRows(rows...)), nil
	case etl.IndexEntry:
		return we.Key, etl.IndexCacheEntry(we.Index...), nil
	default:
		return we.Key, etl.CacheEntry{}, fmt.Errorf("unknown cache entry kind %d", we.Kind)
	}
}

// Marshal encodes key and entry into a byte slice
func Marshal(key string, entry etl.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, key, entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a byte slice produced by Marshal
func Unmarshal(buf []byte) (string, etl.CacheEntry, error) {
	return Decode(bytes.NewReader(buf))
}

// MarshalRaw encodes key and entry without compression
func MarshalRaw(key string, entry etl.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeGob(&buf, key, entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRaw decodes a byte slice produced by MarshalRaw
func UnmarshalRaw(buf []byte) (string, etl.CacheEntry, error) {
	return decodeGob(bytes.NewReader(buf))
}
