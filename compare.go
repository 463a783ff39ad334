package etl

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
	rankBytes
	rankOther
)

// CompareValues imposes a total order over arbitrary entry values, returning
// -1, 0 or 1. Values of different kinds are ordered nil < bool < number <
// string < time < bytes < anything else. Numbers of any width or signedness
// compare numerically. Values of unknown types compare by their type name and
// then by their fmt representation. CompareValues never panics.
func CompareValues(a interface{}, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return compareInts(int64(ra), int64(rb))
	}
	switch ra {
	case rankNil:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		if ab == bb {
			return 0
		} else if !ab {
			return -1
		}
		return 1
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		ta, tb := a.(time.Time), b.(time.Time)
		if ta.Before(tb) {
			return -1
		} else if ta.After(tb) {
			return 1
		}
		return 0
	case rankBytes:
		return bytes.Compare(a.([]byte), b.([]byte))
	default:
		if c := strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); c != 0 {
			return c
		}
		return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
	}
}

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return rankNumber
	case string:
		return rankString
	case time.Time:
		return rankTime
	case []byte:
		return rankBytes
	default:
		return rankOther
	}
}

// numeric is the widened form of a number: exactly one of the three fields is meaningful
type numeric struct {
	kind int // 0 signed, 1 unsigned, 2 float
	i    int64
	u    uint64
	f    float64
}

func widen(v interface{}) numeric {
	switch n := v.(type) {
	case int:
		return numeric{i: int64(n)}
	case int8:
		return numeric{i: int64(n)}
	case int16:
		return numeric{i: int64(n)}
	case int32:
		return numeric{i: int64(n)}
	case int64:
		return numeric{i: n}
	case uint:
		return numeric{kind: 1, u: uint64(n)}
	case uint8:
		return numeric{kind: 1, u: uint64(n)}
	case uint16:
		return numeric{kind: 1, u: uint64(n)}
	case uint32:
		return numeric{kind: 1, u: uint64(n)}
	case uint64:
		return numeric{kind: 1, u: n}
	case float32:
		return numeric{kind: 2, f: float64(n)}
	default:
		return numeric{kind: 2, f: n.(float64)}
	}
}

func compareNumbers(a interface{}, b interface{}) int {
	na, nb := widen(a), widen(b)
	switch {
	case na.kind == 0 && nb.kind == 0:
		return compareInts(na.i, nb.i)
	case na.kind == 1 && nb.kind == 1:
		return compareUints(na.u, nb.u)
	case na.kind == 0 && nb.kind == 1:
		if na.i < 0 {
			return -1
		}
		return compareUints(uint64(na.i), nb.u)
	case na.kind == 1 && nb.kind == 0:
		if nb.i < 0 {
			return 1
		}
		return compareUints(na.u, uint64(nb.i))
	default:
		return compareFloats(na.float(), nb.float())
	}
}

func (n numeric) float() float64 {
	switch n.kind {
	case 0:
		return float64(n.i)
	case 1:
		return float64(n.u)
	default:
		return n.f
	}
}

func compareInts(a int64, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareUints(a uint64, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// compareFloats orders NaN before every other float so the order stays total
func compareFloats(a float64, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
