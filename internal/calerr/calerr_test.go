package calerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_String(t *testing.T) {
	assert.Equal(t, "NONE", None.String())
	assert.Equal(t, "PERMISSION_DENIED", PermissionDenied.String())
	assert.Equal(t, "CODE(99)", Code(99).String())
}

func TestWireValuesAreStable(t *testing.T) {
	// Status codes travel as int32; these values are part of the protocol.
	assert.Equal(t, int32(0), int32(None))
	assert.Equal(t, int32(1), int32(InvalidParameter))
	assert.Equal(t, int32(3), int32(NoData))
	assert.Equal(t, int32(4), int32(Ipc))
	assert.Equal(t, int32(7), int32(RecordNotFound))
}

func TestWrap_KeepsInnerCode(t *testing.T) {
	inner := New(NoData, "read int32", "need %d bytes", 4)
	outer := Wrap(InvalidParameter, "unmarshal record", inner)

	assert.Equal(t, NoData, CodeOf(outer))
	assert.True(t, errors.Is(outer, ErrNoData))
	assert.False(t, errors.Is(outer, ErrInvalidParameter))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(DbFailed, "op", nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, None, CodeOf(nil))
	assert.Equal(t, DbFailed, CodeOf(errors.New("plain")))
	assert.Equal(t, RecordNotFound, CodeOf(fmt.Errorf("get: %w", ErrRecordNotFound)))
}

func TestFromStatus(t *testing.T) {
	assert.NoError(t, FromStatus(0, "x"))

	err := FromStatus(int32(PermissionDenied), "insert_record")
	assert.True(t, IsPermissionDenied(err))
	assert.Equal(t, "insert_record: PERMISSION_DENIED", err.Error())
}

func TestError_Message(t *testing.T) {
	err := &Error{Code: Ipc, Op: "call", Err: errors.New("broken pipe")}
	assert.Equal(t, "call: IPC: broken pipe", err.Error())
	assert.True(t, IsIpc(err))
	assert.False(t, IsNotFound(err))
}
