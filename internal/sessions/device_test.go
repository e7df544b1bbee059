package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want DeviceInfo
	}{
		{
			name: "chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			want: DeviceInfo{Device: "desktop", Browser: "chrome", OS: "windows"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want: DeviceInfo{Device: "mobile", Browser: "safari", OS: "ios", IsMobile: true},
		},
		{
			name: "chrome on android",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			want: DeviceInfo{Device: "mobile", Browser: "chrome", OS: "android", IsMobile: true},
		},
		{
			name: "ipad classified as tablet",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/604.1",
			want: DeviceInfo{Device: "tablet", Browser: "safari", OS: "ios", IsMobile: true},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: DeviceInfo{Device: "desktop", Browser: "firefox", OS: "linux"},
		},
		{
			name: "edge on macos",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			want: DeviceInfo{Device: "desktop", Browser: "edge", OS: "macos"},
		},
		{
			name: "googlebot",
			ua:   "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want: DeviceInfo{Device: "bot"},
		},
		{
			name: "curl",
			ua:   "curl/8.4.0",
			want: DeviceInfo{Device: "bot"},
		},
		{
			name: "empty yields no labels",
			ua:   "",
			want: DeviceInfo{},
		},
		{
			name: "unknown agent defaults to desktop",
			ua:   "SomethingCustom/1.0",
			want: DeviceInfo{Device: "desktop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUserAgent(tt.ua))
		})
	}
}
