package app_test

import (
	"bytes"
	"testing"

	"github.com/TKONIY/gmpt/cli/app"
	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestCLIVersion(t *testing.T) {
	config.Version = "0.1.0-test"
	ctl := app.New()
	require.Len(t, ctl.Commands, 4)
	out := bytes.NewBuffer(nil)
	ctl.Writer = out
	require.NoError(t, ctl.Run([]string{"gmpt", "--version"}))
	require.Contains(t, out.String(), "gmpt\nVersion: ")
}
