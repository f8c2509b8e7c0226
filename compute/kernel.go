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

// UnaryKernel computes an output from a single input slice. Kernels are
// stateless pure functions of their inputs and the KernelCtx; the result
// is written through out, which may arrive holding a preallocated output
// the kernel is expected to fill and finalize.
type UnaryKernel interface {
	Call(ctx *KernelCtx, in Datum, out *Datum) error
}

// BinaryKernel computes an output from a pair of equal-length input
// slices. The dispatcher guarantees both inputs lie within a single
// physical chunk on each side.
type BinaryKernel interface {
	Call(ctx *KernelCtx, left, right Datum, out *Datum) error
}

// UnaryKernelFunc adapts a plain function to the UnaryKernel interface.
type UnaryKernelFunc func(ctx *KernelCtx, in Datum, out *Datum) error

func (f UnaryKernelFunc) Call(ctx *KernelCtx, in Datum, out *Datum) error {
	return f(ctx, in, out)
}

// BinaryKernelFunc adapts a plain function to the BinaryKernel interface.
type BinaryKernelFunc func(ctx *KernelCtx, left, right Datum, out *Datum) error

func (f BinaryKernelFunc) Call(ctx *KernelCtx, left, right Datum, out *Datum) error {
	return f(ctx, left, right, out)
}

var (
	_ UnaryKernel  = (UnaryKernelFunc)(nil)
	_ BinaryKernel = (BinaryKernelFunc)(nil)
)
