package vectorcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointID_IsDeterministicPerKey(t *testing.T) {
	a1 := pointID("same-key")
	a2 := pointID("same-key")
	b := pointID("different-key")

	assert.Equal(t, a1.GetUuid(), a2.GetUuid())
	assert.NotEqual(t, a1.GetUuid(), b.GetUuid())
}

func TestStringValue_NilIsEmpty(t *testing.T) {
	assert.Equal(t, "", stringValue(nil))
}
