package version

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildDate, info.BuildDate)
	assert.NotEmpty(t, info.Hostname)

	_, err := uuid.Parse(info.InstanceID)
	require.NoError(t, err, "instance id should be a valid UUID")

	// Cached after first call.
	assert.Equal(t, info, GetInfo())
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.3", GitCommit: "abc1234", BuildDate: "2025-06-01T00:00:00Z"}
	s := info.String()

	assert.Contains(t, s, "gatekeeper version v1.2.3")
	assert.Contains(t, s, "abc1234")
	assert.Contains(t, s, "2025-06-01T00:00:00Z")
}
