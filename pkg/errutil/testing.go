// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package errutil

import (
	"errors"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is what the assertions need from a test. *testing.T and
// ginkgo's GinkgoT() both satisfy it.
type TestingT interface {
	require.TestingT
	Helper()
}

func requireOops(t TestingT, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err, "expected an error")
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err carries code. Wrapped errors report the
// innermost code.
func AssertErrorCode(t TestingT, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code())
}

// AssertErrorContext asserts that err has value under key in its oops context.
func AssertErrorContext(t TestingT, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}

// AssertErrorWraps asserts that err carries code and wraps target, as
// repositories do when they decorate auth.ErrNotFound.
func AssertErrorWraps(t TestingT, err error, code string, target error) {
	t.Helper()
	AssertErrorCode(t, err, code)
	assert.True(t, errors.Is(err, target), "expected %v to wrap %v", err, target)
}
