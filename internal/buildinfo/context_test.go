package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{name: "nil context", ctx: nil, version: UnknownValue, buildDate: UnknownValue},
		{name: "empty values", ctx: NewContext("", ""), version: UnknownValue, buildDate: UnknownValue},
		{name: "release", ctx: NewContext("1.0.0", "2024-03-01T09:00:00Z"), version: "1.0.0", buildDate: "2024-03-01T09:00:00Z"},
		{name: "pre-release tag", ctx: NewContext("1.0.0-beta.1", ""), version: "1.0.0-beta.1", buildDate: UnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.Version())
			assert.Equal(t, tt.buildDate, tt.ctx.BuildDate())
		})
	}
}

func TestContextString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "2.1.0 (built 2024-03-01)", NewContext("2.1.0", "2024-03-01").String())
	assert.Equal(t, "unknown (built unknown)", (*Context)(nil).String())
}
