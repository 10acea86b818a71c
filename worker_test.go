package wisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkerCount(t *testing.T) {
	n := DefaultWorkerCount()
	assert.Greater(t, n, 0)
	assert.Equal(t, n%2, 1, "2*NumCPU+1 is always odd")
}

func TestBuildListeners_SingleStack(t *testing.T) {
	lns, err := buildListeners(Options{Host: "127.0.0.1", Port: 0})
	if err != nil {
		t.Fatalf("buildListeners: %v", err)
	}
	defer func() {
		for _, ln := range lns {
			ln.Close()
		}
	}()
	assert.Len(t, lns, 1)
}

func TestBuildListeners_DualStack(t *testing.T) {
	lns, err := buildListeners(Options{Host: "127.0.0.1", Port: 0, IPv6: true})
	if err != nil {
		t.Skipf("dual-stack listen unavailable in this environment: %v", err)
	}
	defer func() {
		for _, ln := range lns {
			ln.Close()
		}
	}()
	assert.Len(t, lns, 2)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "fallback", orDefault("", "fallback"))
	assert.Equal(t, "explicit", orDefault("explicit", "fallback"))
}
