package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "relative file", path: "designs/home.json"},
		{name: "absolute tmp", path: "/tmp/exports"},
		{name: "dotted name", path: "catalog..yml"},
		{name: "empty", path: "", wantErr: true},
		{name: "traversal", path: "../secrets.json", wantErr: true},
		{name: "nested traversal", path: "designs/../../etc", wantErr: true},
		{name: "system dir", path: "/etc/passwd", wantErr: true},
		{name: "proc", path: "/proc", wantErr: true},
		{name: "shell metachar", path: "out;rm -rf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"http://localhost:3000", "127.0.0.1:3000"}

	assert.NoError(t, ValidateOrigin("http://localhost:3000", allowed))
	assert.NoError(t, ValidateOrigin("http://127.0.0.1:3000", allowed))
	assert.Error(t, ValidateOrigin("", allowed))
	assert.Error(t, ValidateOrigin("http://malicious.com", allowed))
	assert.Error(t, ValidateOrigin("file:///etc/passwd", allowed))
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("design.json", ".json"))
	assert.True(t, HasExtension("DESIGN.JSON", ".json"))
	assert.False(t, HasExtension("design.txt", ".json"))
	assert.False(t, HasExtension("design", ".json"))
}

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "Plain text", want: "Plain text"},
		{in: "Hi<script>alert(1)</script>", want: "Hi>alert(1)"},
		{in: `<a href="javascript:alert(1)">x</a>`, want: `<a href="alert(1)">x</a>`},
		{in: `<img src=x onerror=alert(1)>`, want: `<img src=x alert(1)>`},
		{in: "null\x00byte", want: "nullbyte"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeContent(tt.in), tt.in)
	}
}
