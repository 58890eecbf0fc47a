package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesBinaryNameAndVersion(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "1.2.3"
	require.Equal(t, "voiceflow 1.2.3", String())
}
