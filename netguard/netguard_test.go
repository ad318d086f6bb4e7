package netguard

import (
	"net"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://127.0.0.1/hook", true},
		{"http://10.0.0.5/hook", true},
		{"http://172.16.1.1/hook", true},
		{"http://192.168.1.1/hook", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/hook", true},
		{"ftp://example.com/file", true},
		{"file:///etc/passwd", true},
		{"https://", true},
		{"https://93.184.216.34/hook", false},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateSecret(t *testing.T) {
	if err := ValidateSecret("short"); err != ErrSecretTooShort {
		t.Errorf("short secret: got %v", err)
	}
	if err := ValidateSecret(strings.Repeat("a", MinSecretLen)); err != nil {
		t.Errorf("valid secret: got %v", err)
	}
}

func TestPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"::1", true},
		{"fd12::1", true},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		if got := privateIP(net.ParseIP(tt.ip)); got != tt.want {
			t.Errorf("privateIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
