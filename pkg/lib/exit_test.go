package lib

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	Report(&buf, errors.Join(errors.New("first"), errors.New("second")))
	assert.Equal(t, "Error: 2 problems\n  - first\n  - second\n", buf.String())

	buf.Reset()
	Report(&buf, errors.Join(errors.New("only"), nil))
	assert.Equal(t, "Error: only\n", buf.String())
}
