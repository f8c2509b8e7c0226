// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compute provides the kernel dispatch layer for chunked,
// Arrow-backed columnar data: invoking unary and binary kernels across
// independently chunked containers and assembling the per-slice results
// back into a container of the right shape.
package compute

import (
	"fmt"

	"github.com/apache/arrow/go/v9/arrow"
	"github.com/apache/arrow/go/v9/arrow/array"
	"github.com/apache/arrow/go/v9/arrow/scalar"
)

type ValueShape int8

const (
	ShapeAny ValueShape = iota
	ShapeArray
	ShapeScalar
)

func (v ValueShape) String() string {
	switch v {
	case ShapeArray:
		return "array"
	case ShapeScalar:
		return "scalar"
	}
	return "any"
}

// ValueDescr describes the shape and type of a value as seen by a kernel,
// without regard to how it is physically chunked.
type ValueDescr struct {
	Shape ValueShape
	Type  arrow.DataType
}

func (v *ValueDescr) String() string {
	return fmt.Sprintf("%s [%s]", v.Shape, v.Type)
}

type DatumKind int

const (
	KindNone DatumKind = iota
	KindScalar
	KindArray
	KindChunked
)

func (d DatumKind) String() string {
	switch d {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindChunked:
		return "chunked_array"
	}
	return "none"
}

const UnknownLength int64 = -1

// Datum is a tagged union of the value kinds that flow between the
// dispatchers and kernels. The dispatch layer only ever reads and slices
// a caller-supplied Datum; it never mutates one.
type Datum interface {
	fmt.Stringer
	Kind() DatumKind
	Len() int64
	Equals(Datum) bool
	Release()
}

// ArrayLikeDatum is implemented by the kinds that can stand in for a
// logical array: a single contiguous array, a chunked array, or a scalar.
// Chunks presents both array kinds uniformly as an ordered chunk list.
type ArrayLikeDatum interface {
	Datum
	Shape() ValueShape
	Descr() ValueDescr
	NullN() int64
	Type() arrow.DataType
	Chunks() []arrow.Array
}

// NewDatum wraps a value in the appropriate Datum kind, retaining a
// reference for arrow-backed values. The caller is responsible for
// calling Release on the result.
func NewDatum(value interface{}) Datum {
	switch v := value.(type) {
	case arrow.Array:
		v.Data().Retain()
		return &ArrayDatum{v.Data()}
	case arrow.ArrayData:
		v.Retain()
		return &ArrayDatum{v}
	case *arrow.Chunked:
		v.Retain()
		return &ChunkedDatum{v}
	case scalar.Scalar:
		return &ScalarDatum{v}
	default:
		return &ScalarDatum{scalar.MakeScalar(value)}
	}
}

type EmptyDatum struct{}

func (EmptyDatum) String() string  { return "nullptr" }
func (EmptyDatum) Kind() DatumKind { return KindNone }
func (EmptyDatum) Len() int64      { return UnknownLength }
func (EmptyDatum) Release()        {}
func (EmptyDatum) Equals(other Datum) bool {
	_, ok := other.(EmptyDatum)
	return ok
}

// ScalarDatum is opaque to the dispatch layer, which handles only the
// array-shaped kinds, but exists so callers holding scalars can be
// rejected cleanly rather than by type assertion panics.
type ScalarDatum struct {
	Value scalar.Scalar
}

func (ScalarDatum) Kind() DatumKind           { return KindScalar }
func (ScalarDatum) Shape() ValueShape         { return ShapeScalar }
func (ScalarDatum) Len() int64                { return 1 }
func (ScalarDatum) Release()                  {}
func (s *ScalarDatum) Chunks() []arrow.Array  { return nil }
func (s *ScalarDatum) Type() arrow.DataType   { return s.Value.DataType() }
func (s *ScalarDatum) String() string         { return fmt.Sprintf("Scalar:{%s}", s.Value) }
func (s *ScalarDatum) Descr() ValueDescr      { return ValueDescr{ShapeScalar, s.Value.DataType()} }
func (s *ScalarDatum) NullN() int64 {
	if s.Value.IsValid() {
		return 0
	}
	return 1
}

func (s *ScalarDatum) Equals(other Datum) bool {
	rhs, ok := other.(*ScalarDatum)
	if !ok {
		return false
	}
	return scalar.Equals(s.Value, rhs.Value)
}

// ArrayDatum holds a single contiguous array: one value buffer view plus
// an optional validity bitmap, a logical length and an offset into the
// backing buffers.
type ArrayDatum struct {
	Value arrow.ArrayData
}

func (ArrayDatum) Kind() DatumKind           { return KindArray }
func (ArrayDatum) Shape() ValueShape         { return ShapeArray }
func (a *ArrayDatum) Type() arrow.DataType   { return a.Value.DataType() }
func (a *ArrayDatum) Len() int64             { return int64(a.Value.Len()) }
func (a *ArrayDatum) NullN() int64           { return int64(a.Value.NullN()) }
func (a *ArrayDatum) Descr() ValueDescr      { return ValueDescr{ShapeArray, a.Value.DataType()} }
func (a *ArrayDatum) String() string         { return fmt.Sprintf("Array:{%s}", a.Value.DataType()) }
func (a *ArrayDatum) MakeArray() arrow.Array { return array.MakeFromData(a.Value) }
func (a *ArrayDatum) Chunks() []arrow.Array  { return []arrow.Array{a.MakeArray()} }
func (a *ArrayDatum) Release()               { a.Value.Release() }

func (a *ArrayDatum) Equals(other Datum) bool {
	rhs, ok := other.(*ArrayDatum)
	if !ok {
		return false
	}

	left := a.MakeArray()
	defer left.Release()
	right := rhs.MakeArray()
	defer right.Release()

	return array.ArrayEqual(left, right)
}

// ChunkedDatum holds one logical array stored as an ordered sequence of
// contiguous chunks. Chunk boundaries carry no semantic meaning: two
// layouts with the same total length and the same value at every logical
// position are interchangeable.
type ChunkedDatum struct {
	Value *arrow.Chunked
}

func (ChunkedDatum) Kind() DatumKind          { return KindChunked }
func (ChunkedDatum) Shape() ValueShape        { return ShapeArray }
func (c *ChunkedDatum) Type() arrow.DataType  { return c.Value.DataType() }
func (c *ChunkedDatum) Len() int64            { return int64(c.Value.Len()) }
func (c *ChunkedDatum) NullN() int64          { return int64(c.Value.NullN()) }
func (c *ChunkedDatum) Descr() ValueDescr     { return ValueDescr{ShapeArray, c.Value.DataType()} }
func (c *ChunkedDatum) String() string        { return fmt.Sprintf("ChunkedArray:{%s}", c.Value.DataType()) }
func (c *ChunkedDatum) Chunks() []arrow.Array { return c.Value.Chunks() }
func (c *ChunkedDatum) Release()              { c.Value.Release() }

func (c *ChunkedDatum) Equals(other Datum) bool {
	rhs, ok := other.(*ChunkedDatum)
	if !ok {
		return false
	}
	return array.ChunkedEqual(c.Value, rhs.Value)
}

var (
	_ ArrayLikeDatum = (*ScalarDatum)(nil)
	_ ArrayLikeDatum = (*ArrayDatum)(nil)
	_ ArrayLikeDatum = (*ChunkedDatum)(nil)
	_ Datum          = EmptyDatum{}
)
