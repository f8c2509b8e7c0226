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
	"github.com/apache/arrow/go/v9/arrow"
	"github.com/apache/arrow/go/v9/arrow/array"
	"github.com/apache/arrow/go/v9/arrow/bitutil"
	"github.com/apache/arrow/go/v9/arrow/memory"
	"golang.org/x/xerrors"
)

// PrimitiveAllocatingUnaryKernel wraps a unary kernel that computes a
// bit-packed output but expects its output buffers to be handed to it
// rather than allocated itself. Before delegating, Call populates out
// with an array header carrying a validity bitmap slot and a freshly
// allocated value bitmap, both sized to the input's logical length.
//
// Every bit beyond the logical length of either bitmap is zero, so
// downstream readers may consume whole bytes or words.
type PrimitiveAllocatingUnaryKernel struct {
	delegate UnaryKernel
}

func NewPrimitiveAllocatingUnaryKernel(delegate UnaryKernel) *PrimitiveAllocatingUnaryKernel {
	return &PrimitiveAllocatingUnaryKernel{delegate: delegate}
}

func zeroLastByte(buf *memory.Buffer) {
	b := buf.Bytes()
	b[len(b)-1] = 0
}

// allocatePaddedBitmap returns a bitmap buffer for nbits bits whose last
// byte is explicitly zeroed before the trailing padding bits are cleared.
// Utility readers touch the last byte before it is fully written, so it
// must never hold uninitialized memory. Allocator exhaustion panics are
// converted into ErrAllocationFailure.
func allocatePaddedBitmap(ctx *KernelCtx, nbits int64) (buf *memory.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("bitmap of %d bits: %v: %w", nbits, r, ErrAllocationFailure)
		}
	}()

	buf = ctx.AllocateBitmap(nbits)
	if buf.Len() > 0 {
		zeroLastByte(buf)
		bitutil.SetBitsTo(buf.Bytes(), nbits, int64(buf.Len())*8-nbits, false)
	}
	return buf, nil
}

// Call prepares the output buffer pair and delegates the value
// computation. The validity slot is left nil when the input's offset is
// zero, signaling that the input's validity bitmap can be shared without
// copying; a nonzero offset forces a fresh bitmap since the input's
// cannot be reused bit-for-bit. The value bitmap is always fresh.
//
// The header handed to the delegate carries the null type as a
// placeholder; the delegate fills the value bits and finalizes the type.
func (k *PrimitiveAllocatingUnaryKernel) Call(ctx *KernelCtx, in Datum, out *Datum) error {
	arr, ok := in.(*ArrayDatum)
	if !ok {
		return xerrors.Errorf("input %s: %w", in, ErrNotArrayLike)
	}

	var (
		inData  = arr.Value
		length  = int64(inData.Len())
		buffers = make([]*memory.Buffer, 2)
	)

	if inData.Offset() != 0 {
		validity, err := allocatePaddedBitmap(ctx, length)
		if err != nil {
			return err
		}
		buffers[0] = validity
		defer buffers[0].Release()
	}

	values, err := allocatePaddedBitmap(ctx, length)
	if err != nil {
		return err
	}
	buffers[1] = values
	defer buffers[1].Release()

	outData := array.NewData(arrow.Null, int(length), buffers, nil, array.UnknownNullCount, 0)
	*out = NewDatum(outData)
	outData.Release()

	if err := k.delegate.Call(ctx, in, out); err != nil {
		if *out != nil {
			(*out).Release()
			*out = nil
		}
		return err
	}
	return nil
}

var _ UnaryKernel = (*PrimitiveAllocatingUnaryKernel)(nil)
