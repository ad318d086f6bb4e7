package browser

import "testing"

func TestShouldBlock(t *testing.T) {
	blockSet := map[string]bool{"images": true, "fonts": true}

	tests := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Media", false},
		{"Document", false},
		{"XHR", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(blockSet, tt.resType); got != tt.want {
			t.Errorf("shouldBlock(%q): got %v, want %v", tt.resType, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.NavigateTimeout <= 0 {
		t.Error("NavigateTimeout default missing")
	}
	if len(c.ResourceBlocking) == 0 {
		t.Error("ResourceBlocking default missing")
	}
}
