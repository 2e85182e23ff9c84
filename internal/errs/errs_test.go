package errs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"path and cause", New(Fatal, "list", "/x", "cannot open directory", fs.ErrPermission), "list [/x]: cannot open directory: permission denied"},
		{"cause only", New(Fatal, "copy", "", "", fs.ErrNotExist), "copy: file does not exist"},
		{"message only", NewBlocked("copy", "/a", "nested destination"), "copy [/a]: nested destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("walk: %w", New(Blocked, "copy", "/a", "x", nil))
	assert.Equal(t, Blocked, ClassOf(wrapped))
	assert.Equal(t, Cancelled, ClassOf(context.Canceled))
	assert.Equal(t, Cancelled, ClassOf(fmt.Errorf("copy: %w", context.Canceled)))
	assert.Equal(t, Fatal, ClassOf(errors.New("disk on fire")))
	assert.True(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(nil))
}

func TestUnwrap(t *testing.T) {
	err := New(Fatal, "list", "/x", "cannot open directory", fs.ErrNotExist)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "fatal", err.Class.String())
}
