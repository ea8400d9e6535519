package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "info", verbose: false, wantDebug: false},
		{name: "verbose", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, Options{Verbose: tt.verbose, NoColor: true})
			log.Debug("shift", "bits", 5)
			log.Info("enabled", "device", "sim")

			out := buf.String()
			assert.Contains(t, out, "enabled")
			assert.Contains(t, out, "device=sim")
			if tt.wantDebug {
				assert.Contains(t, out, "bits=5")
			} else {
				assert.NotContains(t, out, "shift")
			}
			assert.NotContains(t, out, "\x1b[")
		})
	}
}
