package model

import (
	"strconv"
	"strings"

	"inferd/pkg/types"
)

// WildcardDim is a config-declared dimension that matches any concrete value
// at request time.
const WildcardDim int64 = -1

// CompareDimsWithWildcard reports whether shape matches the declared dims,
// treating WildcardDim in dims as matching any value.
func CompareDimsWithWildcard(dims, shape []int64) bool {
	if len(dims) != len(shape) {
		return false
	}
	for i, d := range dims {
		if d != WildcardDim && d != shape[i] {
			return false
		}
	}
	return true
}

// DimsToString renders a shape the way it appears in error messages,
// e.g. [1,4,-1].
func DimsToString(dims []int64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, d := range dims {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(d, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// ElementCount returns the number of elements in a shape, or -1 if the shape
// still contains a wildcard. A zero-rank shape has one element.
func ElementCount(shape []int64) int64 {
	count := int64(1)
	for _, d := range shape {
		if d == WildcardDim {
			return -1
		}
		count *= d
	}
	return count
}

// ByteSize returns the byte size of a tensor with the given datatype and
// fully-specified shape, or -1 for variable-size datatypes or shapes that
// still contain a wildcard.
func ByteSize(dt types.DataType, shape []int64) int64 {
	if !dt.IsFixedSize() {
		return -1
	}
	count := ElementCount(shape)
	if count < 0 {
		return -1
	}
	return dt.Size() * count
}
