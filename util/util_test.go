package util_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idiap/twister/util"
)

func ExampleLimiter_Check() {
	l := util.Limiter{Min: -180, Max: 180}
	fmt.Println(l.Check(90), l.Check(270))
	// Output: true false
}

func TestLimiterCheckIsInclusive(t *testing.T) {
	l := util.Limiter{Min: 0, Max: 360}
	assert.True(t, l.Check(0))
	assert.True(t, l.Check(360))
	assert.False(t, l.Check(-0.225))
	assert.False(t, l.Check(360.225))
}
