package cli

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", cause, ExitGeneral},
		{"config", ConfigError("loading configuration", cause), ExitConfig},
		{"manifest", ManifestError("parsing manifest", cause), ExitManifest},
		{"database", DBConnectError("connecting", cause), ExitDBConnect},
		{"wrapped", fmt.Errorf("preload: %w", ManifestError("declaring", cause)), ExitManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "loading configuration: boom", ConfigError("loading configuration", errors.New("boom")).Error())
	assert.Equal(t, "manifest not found", ManifestError("manifest not found", nil).Error())

	err := GeneralError("query failed", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
