package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandHasModes(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"serve", "proxy"}, names)
	require.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}
