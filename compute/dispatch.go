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

package compute

import (
	"errors"

	"github.com/apache/arrow/go/v9/arrow"
	"github.com/apache/arrow/go/v9/arrow/array"
	"golang.org/x/xerrors"

	"github.com/zeroshade/arrow-dispatch/internal/debug"
	"github.com/zeroshade/arrow-dispatch/internal/utils"
)

var (
	// ErrNotArrayLike is returned when a Datum argument is neither an
	// Array nor a ChunkedArray.
	ErrNotArrayLike = errors.New("datum is not array-like")
	// ErrLengthMismatch is returned when the logical lengths of binary
	// kernel inputs differ.
	ErrLengthMismatch = errors.New("left and right lengths differ")
	// ErrShapeViolation indicates results that cannot be assembled into
	// the template's shape. It signals a kernel or adapter bug rather
	// than a user input problem.
	ErrShapeViolation = errors.New("results do not match template shape")
	// ErrAllocationFailure wraps allocator exhaustion surfaced while
	// preparing kernel output buffers.
	ErrAllocationFailure = errors.New("buffer allocation failed")
)

func releaseDatums(datums []Datum) {
	for _, d := range datums {
		if d != nil {
			d.Release()
		}
	}
}

// asChunkView flattens an array-like Datum into its ordered physical
// chunks: a bare array is a one-chunk sequence. The returned ArrayData
// views are borrowed from the input and remain valid only while the
// caller holds the Datum.
func asChunkView(value Datum, side string) ([]arrow.ArrayData, int64, error) {
	switch v := value.(type) {
	case *ArrayDatum:
		return []arrow.ArrayData{v.Value}, v.Len(), nil
	case *ChunkedDatum:
		chunks := make([]arrow.ArrayData, len(v.Value.Chunks()))
		for i, c := range v.Value.Chunks() {
			chunks[i] = c.Data()
		}
		return chunks, v.Len(), nil
	default:
		return nil, 0, xerrors.Errorf("%s input %s: %w", side, value, ErrNotArrayLike)
	}
}

// InvokeUnaryKernel applies kernel to every physical chunk of value, in
// chunk order, returning one output Datum per chunk. A bare array yields
// exactly one output. The walk is fail-fast: the first kernel error
// aborts it and any outputs produced so far are released.
func InvokeUnaryKernel(ctx *KernelCtx, kernel UnaryKernel, value Datum) ([]Datum, error) {
	switch v := value.(type) {
	case *ArrayDatum:
		var out Datum
		if err := kernel.Call(ctx, v, &out); err != nil {
			return nil, err
		}
		return []Datum{out}, nil
	case *ChunkedDatum:
		outputs := make([]Datum, 0, len(v.Value.Chunks()))
		for _, chunk := range v.Value.Chunks() {
			in := NewDatum(chunk.Data())
			var out Datum
			err := kernel.Call(ctx, in, &out)
			in.Release()
			if err != nil {
				releaseDatums(outputs)
				return nil, err
			}
			outputs = append(outputs, out)
		}
		return outputs, nil
	default:
		return nil, xerrors.Errorf("input %s: %w", value, ErrNotArrayLike)
	}
}

// InvokeBinaryKernel applies kernel elementwise over two array-like
// Datums of equal logical length whose chunk boundaries were chosen
// independently. It walks both sides with a cursor per side, cutting at
// whichever chunk boundary comes first, so each invocation sees a pair
// of zero-copy slices that each lie within a single physical chunk.
// This is the minimal number of invocations for the two layouts.
//
// Zero-length chunks are treated as immediately exhausted and skipped;
// a kernel is never handed an empty slice.
func InvokeBinaryKernel(ctx *KernelCtx, kernel BinaryKernel, left, right Datum) ([]Datum, error) {
	leftChunks, leftLen, err := asChunkView(left, "left")
	if err != nil {
		return nil, err
	}
	rightChunks, rightLen, err := asChunkView(right, "right")
	if err != nil {
		return nil, err
	}
	if leftLen != rightLen {
		return nil, xerrors.Errorf("left length %d != right length %d: %w", leftLen, rightLen, ErrLengthMismatch)
	}

	var (
		outputs           = make([]Datum, 0, utils.Max(len(leftChunks), len(rightChunks)))
		leftIdx, rightIdx int
		leftPos, rightPos int64
		processed         int64
	)
	for processed < leftLen {
		// A cursor sitting at the end of its chunk moves to the next one.
		// This also steps over zero-length chunks, which contribute no
		// elements and would otherwise stall the walk.
		for leftPos == int64(leftChunks[leftIdx].Len()) {
			leftIdx++
			leftPos = 0
			debug.Assert(leftIdx < len(leftChunks), "binary kernel walk ran off the left chunk list")
		}
		for rightPos == int64(rightChunks[rightIdx].Len()) {
			rightIdx++
			rightPos = 0
			debug.Assert(rightIdx < len(rightChunks), "binary kernel walk ran off the right chunk list")
		}

		step := utils.Min(int64(leftChunks[leftIdx].Len())-leftPos,
			int64(rightChunks[rightIdx].Len())-rightPos)

		leftSlice := array.NewSliceData(leftChunks[leftIdx], leftPos, leftPos+step)
		leftOp := NewDatum(leftSlice)
		leftSlice.Release()
		rightSlice := array.NewSliceData(rightChunks[rightIdx], rightPos, rightPos+step)
		rightOp := NewDatum(rightSlice)
		rightSlice.Release()

		var out Datum
		err := kernel.Call(ctx, leftOp, rightOp, &out)
		leftOp.Release()
		rightOp.Release()
		if err != nil {
			releaseDatums(outputs)
			return nil, err
		}
		outputs = append(outputs, out)

		processed += step
		leftPos += step
		rightPos += step
	}
	debug.Assert(processed == leftLen, "binary kernel walk processed a different length than its inputs")

	return outputs, nil
}

// InvokeBinaryKernelWrapped invokes kernel as InvokeBinaryKernel does and
// assembles the per-slice results into a single Datum mirroring the shape
// of the left input. The output's chunking follows what the walk actually
// produced, not the left input's original chunk lengths.
func InvokeBinaryKernelWrapped(ctx *KernelCtx, kernel BinaryKernel, left, right Datum) (Datum, error) {
	outputs, err := InvokeBinaryKernel(ctx, kernel, left, right)
	if err != nil {
		return nil, err
	}
	out, err := WrapDatumsLike(left, outputs)
	releaseDatums(outputs)
	return out, err
}

// WrapDatumsLike assembles kernel results into a Datum of the same shape
// as template: a bare-array template demands exactly one array result,
// while a chunked template accepts any number of array results as the
// output chunks, in order. Violations report ErrShapeViolation since they
// indicate a broken kernel contract, not bad user input.
func WrapDatumsLike(template Datum, datums []Datum) (Datum, error) {
	switch t := template.(type) {
	case *ArrayDatum:
		if len(datums) != 1 {
			return nil, xerrors.Errorf("array template requires exactly 1 result, got %d: %w", len(datums), ErrShapeViolation)
		}
		d, ok := datums[0].(*ArrayDatum)
		if !ok {
			return nil, xerrors.Errorf("result %s is not array kind: %w", datums[0], ErrShapeViolation)
		}
		return NewDatum(d.Value), nil
	case *ChunkedDatum:
		chunks := make([]arrow.Array, len(datums))
		for i, d := range datums {
			ad, ok := d.(*ArrayDatum)
			if !ok {
				return nil, xerrors.Errorf("result %s is not array kind: %w", d, ErrShapeViolation)
			}
			chunks[i] = ad.MakeArray()
			defer chunks[i].Release()
		}
		chunked := arrow.NewChunked(t.Type(), chunks)
		defer chunked.Release()
		return NewDatum(chunked), nil
	default:
		return nil, xerrors.Errorf("template %s: %w", template, ErrNotArrayLike)
	}
}

// WrapArraysLike is the variant of WrapDatumsLike for callers that
// already hold materialized arrays rather than Datums.
func WrapArraysLike(template Datum, arrs []arrow.Array) (Datum, error) {
	switch t := template.(type) {
	case *ArrayDatum:
		if len(arrs) != 1 {
			return nil, xerrors.Errorf("array template requires exactly 1 result, got %d: %w", len(arrs), ErrShapeViolation)
		}
		return NewDatum(arrs[0]), nil
	case *ChunkedDatum:
		chunked := arrow.NewChunked(t.Type(), arrs)
		defer chunked.Release()
		return NewDatum(chunked), nil
	default:
		return nil, xerrors.Errorf("template %s: %w", template, ErrNotArrayLike)
	}
}
