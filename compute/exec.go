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
	"context"

	"github.com/apache/arrow/go/v9/arrow/bitutil"
	"github.com/apache/arrow/go/v9/arrow/memory"
)

// ExecCtx holds the ambient state shared across kernel invocations,
// chiefly the allocator. It may be shared by concurrent top-level
// invocations as long as the allocator is safe for concurrent use;
// the dispatch layer itself never mutates it.
type ExecCtx struct {
	Mem memory.Allocator
}

func (e *ExecCtx) Allocator() memory.Allocator {
	if e.Mem == nil {
		return memory.DefaultAllocator
	}
	return e.Mem
}

func DefaultExecCtx() *ExecCtx {
	return &ExecCtx{Mem: memory.DefaultAllocator}
}

type execCtxKey struct{}

func SetExecCtx(ctx context.Context, ectx *ExecCtx) context.Context {
	return context.WithValue(ctx, execCtxKey{}, ectx)
}

func GetExecCtx(ctx context.Context) *ExecCtx {
	if ec, ok := ctx.Value(execCtxKey{}).(*ExecCtx); ok {
		return ec
	}
	return nil
}

// KernelCtx is the per-invocation handle passed by reference to every
// kernel call, carrying the ExecCtx plus optional kernel state.
type KernelCtx struct {
	Ctx   *ExecCtx
	State KernelState
}

type KernelState interface{}

func NewKernelCtx(ectx *ExecCtx) *KernelCtx {
	if ectx == nil {
		ectx = DefaultExecCtx()
	}
	return &KernelCtx{Ctx: ectx}
}

// Allocate returns a new zero-initialized buffer of nb bytes from the
// context's allocator. The allocator reports exhaustion by panicking,
// per the arrow memory contract.
func (k *KernelCtx) Allocate(nb int) *memory.Buffer {
	buf := memory.NewResizableBuffer(k.Ctx.Allocator())
	buf.Resize(nb)
	return buf
}

// AllocateBitmap returns a new zeroed bitmap buffer able to hold nbits
// bits, rounded up to whole bytes.
func (k *KernelCtx) AllocateBitmap(nbits int64) *memory.Buffer {
	nbytes := bitutil.BytesForBits(nbits)
	return k.Allocate(int(nbytes))
}
