package security

import (
	"errors"
	"testing"
)

func TestCleanFilePath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr error
	}{
		{"secrets.yaml", "secrets.yaml", nil},
		{"./conf//secrets.yaml", "conf/secrets.yaml", nil},
		{"/etc/peoplectl/secrets.yaml", "/etc/peoplectl/secrets.yaml", nil},
		{"/var/lib/../run/metrics.prom", "/var/run/metrics.prom", nil},
		{"reports/a..b.prom", "reports/a..b.prom", nil},
		{"../secrets.yaml", "", ErrPathTraversal},
		{"conf/../../secrets.yaml", "", ErrPathTraversal},
		{"", "", ErrInvalidPath},
		{"  ", "", ErrInvalidPath},
		{"bad\x00name", "", ErrInvalidPath},
	}

	for _, tt := range tests {
		got, err := CleanFilePath(tt.path)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("CleanFilePath(%q) = (%q, %v), want (%q, %v)", tt.path, got, err, tt.want, tt.wantErr)
		}
	}
}
