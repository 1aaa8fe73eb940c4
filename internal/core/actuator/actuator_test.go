package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActuatorDefaults(t *testing.T) {
	acc := NewAccelerator()
	rot := NewRotator()

	assert.Equal(t, 0.0, acc.Cmd())
	assert.Equal(t, Accelerator, acc.Role())
	assert.Equal(t, Rotator, rot.Role())
	assert.Equal(t, "rotator", rot.Role().String())

	acc.SetCmd(-2.5)
	assert.Equal(t, -2.5, acc.Cmd())
	assert.Equal(t, 0.0, rot.Cmd())
}
