package session

import "testing"

func TestMaskAddr(t *testing.T) {
	tests := []struct {
		remote string
		mask   bool
		want   string
	}{
		{"203.0.113.57:51234", true, "203.0.0.0/16"},
		{"203.0.113.57:51234", false, "203.0.113.57"},
		{"[2001:db8:abcd:12::1]:443", true, "2001:db8:abcd::/48"},
		{"[::ffff:198.51.100.7]:80", true, "198.51.0.0/16"},
		{"198.51.100.7", true, "198.51.0.0/16"},
		{"not-an-ip", true, "unknown"},
		{"not-an-ip", false, "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			if got := MaskAddr(tt.remote, tt.mask); got != tt.want {
				t.Errorf("MaskAddr(%q, %v) = %q, want %q", tt.remote, tt.mask, got, tt.want)
			}
		})
	}
}
