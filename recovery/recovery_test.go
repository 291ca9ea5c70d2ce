package recovery

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	want := errors.New("plain failure")

	tests := []struct {
		name      string
		fn        func() error
		wantErr   error
		wantPanic any
	}{
		{name: "nil", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return want }, wantErr: want},
		{name: "string panic", fn: func() error { panic("disk on fire") }, wantPanic: "disk on fire"},
		{name: "error panic", fn: func() error { panic(io.ErrUnexpectedEOF) }, wantErr: io.ErrUnexpectedEOF, wantPanic: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Do(tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			pe, ok := AsPanic(err)
			if tt.wantPanic == nil {
				assert.False(t, ok)
				if tt.wantErr == nil {
					assert.NoError(t, err)
				}
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantPanic, pe.Value)
			assert.Equal(t, fmt.Sprintf("panic: %v", tt.wantPanic), pe.Error())
			assert.Contains(t, string(pe.Stack), "recovery")
		})
	}
}

func TestDo_StringPanicHasNoCause(t *testing.T) {
	pe, ok := AsPanic(Do(func() error { panic("x") }))
	require.True(t, ok)
	assert.Nil(t, pe.Unwrap())
}

func TestDo_CustomHandler(t *testing.T) {
	sentinel := errors.New("handled")
	var gotStack []byte

	err := Do(func() error {
		panic(42)
	}, WithHandler(func(p any, stack []byte) error {
		gotStack = stack
		assert.Equal(t, 42, p)
		return sentinel
	}), WithStackSize(1024), WithStackAll(false))

	assert.ErrorIs(t, err, sentinel)
	assert.NotEmpty(t, gotStack)
	assert.LessOrEqual(t, len(gotStack), 1024)
	_, ok := AsPanic(err)
	assert.False(t, ok)
}

func TestDo_InvalidStackSizeFallsBack(t *testing.T) {
	pe, ok := AsPanic(Do(func() error { panic("x") }, WithStackSize(-1)))
	require.True(t, ok)
	assert.NotEmpty(t, pe.Stack)
}

func TestRun(t *testing.T) {
	called := false
	assert.NoError(t, Run(func() { called = true }))
	assert.True(t, called)

	err := Run(func() {
		var m map[string]int
		m["boom"]++
	})
	pe, ok := AsPanic(err)
	require.True(t, ok)
	assert.Contains(t, pe.Error(), "nil map")
}

func TestAsPanic_Wrapped(t *testing.T) {
	inner := Do(func() error { panic("deep") })
	wrapped := fmt.Errorf("job nightly: %w", inner)

	pe, ok := AsPanic(wrapped)
	require.True(t, ok)
	assert.Equal(t, "deep", pe.Value)

	_, ok = AsPanic(nil)
	assert.False(t, ok)
}
