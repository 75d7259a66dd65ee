package metastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumNbObjectsAddsAcrossBlocks(t *testing.T) {
	blocks := []Block{
		{NbObjects: 3},
		{NbObjects: 5},
		{NbObjects: 0},
	}
	assert.EqualValues(t, 8, SumNbObjects(blocks))
}

func TestSumNbObjectsEmpty(t *testing.T) {
	assert.EqualValues(t, 0, SumNbObjects(nil))
}
