package stagealloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.EqualValues(t, 0, alignUp(0, 256))
	assert.EqualValues(t, 256, alignUp(1, 256))
	assert.EqualValues(t, 256, alignUp(256, 256))
	assert.EqualValues(t, 512, alignUp(257, 256))
	assert.EqualValues(t, 17, alignUp(17, 1))
}
