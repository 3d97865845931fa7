package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolations(t *testing.T) {
	pkgs := []packageInfo{
		{ImportPath: "bridgesim/server/internal/ship", Imports: []string{"bridgesim/server/internal/sim", "net/http"}},
		{ImportPath: "bridgesim/server/internal/sim", Imports: []string{"math", "os/exec"}},
		{ImportPath: "bridgesim/server/internal/net/ws", Imports: []string{"github.com/gorilla/websocket", "net/http"}},
		{ImportPath: "bridgesim/server/internal/physics", Imports: []string{"github.com/solarlune/resolv"}},
	}

	assert.Equal(t, []string{
		"bridgesim/server/internal/ship -> net/http",
		"bridgesim/server/internal/sim -> os/exec",
	}, violations(pkgs))
}

func TestDecodePackages(t *testing.T) {
	stream := `{"ImportPath":"a","Imports":["b"]}
{"ImportPath":"c"}`
	pkgs, err := decodePackages(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "a", pkgs[0].ImportPath)
	assert.Equal(t, []string{"b"}, pkgs[0].Imports)
}
