package sl

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestSecret(t *testing.T) {
	assert.Equal(t, "****", Secret("k", "abcd").Value.String())
	assert.Equal(t, "sk-1...wxyz", Secret("k", "sk-1234567890wxyz").Value.String())
}

func TestErr(t *testing.T) {
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, "", Err(nil).Value.String())
}
