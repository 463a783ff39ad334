package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/accumulators"
	errors "github.com/go-sif/etl/errors"
)

// GroupBy folds the entire output of its inner pipeline into one aggregate
// per distinct combination of key entries, then yields a single batch holding
// one Row per group, in the order groups were first seen. Each Row holds the
// key entries followed by the aggregations. Memory use is bounded by the
// number of groups.
type GroupBy struct {
	inner        Pipeline
	keys         []string
	aggregations []accumulators.Aggregation
	next         *Synchronous
}

// NewGroupBy wraps inner. Aggregation names must be unique and must not collide with keys.
func NewGroupBy(inner Pipeline, keys []string, aggregations ...accumulators.Aggregation) (*GroupBy, error) {
	seen := make(map[string]struct{}, len(keys)+len(aggregations))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return nil, errors.InvalidConfigError{Param: "group key", Value: k, Reason: "is listed more than once"}
		}
		seen[k] = struct{}{}
	}
	for _, a := range aggregations {
		if a.New == nil {
			return nil, errors.InvalidConfigError{Param: "aggregation", Value: a.As, Reason: "has no accumulator"}
		}
		if _, ok := seen[a.As]; ok {
			return nil, errors.InvalidConfigError{Param: "aggregation", Value: a.As, Reason: "collides with another output entry"}
		}
		seen[a.As] = struct{}{}
	}
	return &GroupBy{
		inner:        inner,
		keys:         append([]string(nil), keys...),
		aggregations: append([]accumulators.Aggregation(nil), aggregations...),
		next:         downstream(inner),
	}, nil
}

// Keys returns the group key entry names
func (g *GroupBy) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Inner returns the decorated pipeline
func (g *GroupBy) Inner() Pipeline {
	return g.inner
}

// Add appends a pipe which runs against the grouped batch
func (g *GroupBy) Add(pipe etl.Pipe) Pipeline {
	g.next.Add(pipe)
	return g
}

// Pipes returns the pipes of the inner pipeline followed by the pipes added to this one
func (g *GroupBy) Pipes() []etl.Pipe {
	return append(g.inner.Pipes(), g.next.Pipes()...)
}

// Source returns the inner pipeline's source
func (g *GroupBy) Source() etl.Extractor {
	return g.inner.Source()
}

// SetSource sets the inner pipeline's source
func (g *GroupBy) SetSource(source etl.Extractor) Pipeline {
	g.inner.SetSource(source)
	return g
}

// Clean returns an empty GroupBy pipeline with the same keys and aggregations around a clean inner pipeline
func (g *GroupBy) Clean() Pipeline {
	inner := g.inner.Clean()
	return &GroupBy{inner: inner, keys: g.keys, aggregations: g.aggregations, next: downstream(inner)}
}

// Process implements Pipeline
func (g *GroupBy) Process(ctx context.Context) (etl.RowsIterator, error) {
	upstream, err := g.inner.Process(ctx)
	if err != nil {
		return nil, err
	}
	return g.next.bind(&iteratorExtractor{iter: &blockingIterator{upstream: upstream, fold: g.fold}}).Process(ctx)
}

type group struct {
	key []interface{}
	acc *accumulators.Composed
}

func (g *GroupBy) fold(ctx context.Context, upstream etl.RowsIterator) (etl.Rows, error) {
	newAcc := accumulators.Compose(g.aggregations...)
	buckets := make(map[uint64][]*group)
	var order []*group
	for {
		batch, ok, err := upstream.Next(ctx)
		if err != nil {
			return etl.Rows{}, err
		}
		if !ok {
			break
		}
		for i := 0; i < batch.Len(); i++ {
			row := batch.At(i)
			key := make([]interface{}, len(g.keys))
			for k, name := range g.keys {
				key[k] = row.Value(name)
			}
			h := hashKey(key)
			var target *group
			for _, candidate := range buckets[h] {
				if sameKey(candidate.key, key) {
					target = candidate
					break
				}
			}
			if target == nil {
				target = &group{key: key, acc: newAcc()}
				buckets[h] = append(buckets[h], target)
				order = append(order, target)
			}
			if err := target.acc.Accumulate(row); err != nil {
				return etl.Rows{}, fmt.Errorf("unable to aggregate row %s: %w", row, err)
			}
		}
	}
	out := make([]etl.Row, len(order))
	for i, grp := range order {
		entries := make([]etl.Entry, 0, len(g.keys)+len(g.aggregations))
		for k, name := range g.keys {
			entries = append(entries, etl.Entry{Name: name, Value: grp.key[k]})
		}
		entries = append(entries, grp.acc.Entries()...)
		row, err := etl.NewRow(entries...)
		if err != nil {
			return etl.Rows{}, err
		}
		out[i] = row
	}
	return etl.NewRows(out...), nil
}

func sameKey(a []interface{}, b []interface{}) bool {
	for i := range a {
		if etl.CompareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

// hashKey hashes a group key such that keys equal under etl.CompareValues hash equally
func hashKey(key []interface{}) uint64 {
	d := xxhash.New()
	var lenBuf [8]byte
	for _, v := range key {
		tag, repr := canonical(v)
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(repr)))
		d.Write([]byte{tag})
		d.Write(lenBuf[:])
		d.Write(repr)
	}
	return d.Sum64()
}

func canonical(v interface{}) (byte, []byte) {
	switch t := v.(type) {
	case nil:
		return 'z', nil
	case bool:
		return 'b', []byte(strconv.FormatBool(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f := toFloat(t)
		if f == 0 {
			f = 0 // folds negative zero
		}
		if math.IsNaN(f) {
			return 'n', []byte("NaN")
		}
		return 'n', []byte(strconv.FormatFloat(f, 'g', -1, 64))
	case string:
		return 's', []byte(t)
	case time.Time:
		return 't', []byte(t.UTC().Format(time.RFC3339Nano))
	case []byte:
		return 'y', t
	default:
		return 'o', []byte(fmt.Sprintf("%T:%v", t, t))
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return n.(float64)
	}
}
