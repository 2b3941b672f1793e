// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "context"

// UnitOfWork runs fn atomically. Repositories called with the ctx passed to
// fn take part in the same transaction; a non-nil return rolls everything
// back. Nested calls join the outer unit.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWorkFunc adapts a function to UnitOfWork.
type UnitOfWorkFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// Do calls f.
func (f UnitOfWorkFunc) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Immediate runs fn without a transaction. It suits stores whose writes are
// already serialized, and tests.
var Immediate UnitOfWork = UnitOfWorkFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
