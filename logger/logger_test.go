package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeBytes(t *testing.T) {
	assert.Contains(t, HumanizeBytes(512), "B")
	assert.Contains(t, HumanizeBytes(2048), "KB")
}

func TestInitLogger(t *testing.T) {
	l, err := InitLogger()
	assert.NoError(t, err)
	assert.NotNil(t, l)
}
