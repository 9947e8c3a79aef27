package vkerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestResultSuccessIsNil(t *testing.T) {
	require.NoError(t, Result(vk.Success))
}

func TestResultWrapsFailure(t *testing.T) {
	err := Result(vk.ErrorDeviceLost)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vulkan error")
}

func TestRecoverableRoundTrip(t *testing.T) {
	base := errors.New("fence wait timed out")
	err := NewRecoverable("frame.NextFrame", base)
	require.True(t, IsRecoverable(err))
	require.ErrorIs(t, err, base)
}

func TestIsSuboptimalOrOutOfDate(t *testing.T) {
	require.True(t, IsSuboptimalOrOutOfDate(vk.Suboptimal))
	require.True(t, IsSuboptimalOrOutOfDate(vk.ErrorOutOfDate))
	require.False(t, IsSuboptimalOrOutOfDate(vk.ErrorDeviceLost))
}
