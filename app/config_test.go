package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDump(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(`
Title = "SK Federation of Testing"

[Webserver]
Port = 8090
URL = "http://localhost:8090"
`), 0o600))

	tests := []struct {
		name  string
		args  []string
		wants []string
	}{
		{name: "toml", args: []string{"config", "dump", "--config", dir + "/"}, wants: []string{`Title = "SK Federation of Testing"`, "ShutDownTime = 5"}},
		{name: "json", args: []string{"config", "dump", "--json", "--config", dir + "/"}, wants: []string{`"Title": "SK Federation of Testing"`, `"Backend": "db"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)

			require.NoError(t, rootCmd.Execute())

			for _, want := range tt.wants {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}
