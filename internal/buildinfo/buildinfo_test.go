package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	old := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = old })

	info := Info()
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, runtime.Version(), info["goVersion"])
	assert.Contains(t, info, "builtAt")
}
