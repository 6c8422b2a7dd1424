package interceptors

import (
	"context"
	"net"
	"strings"
	"testing"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]string
		want string
	}{
		{"x-forwarded-for", map[string]string{"x-forwarded-for": "192.168.1.1"}, "192.168.1.1"},
		{"x-forwarded-for with chain", map[string]string{"x-forwarded-for": "192.168.1.1, 10.0.0.1"}, "192.168.1.1"},
		{"x-real-ip", map[string]string{"x-real-ip": "192.168.1.2"}, "192.168.1.2"},
		{"forwarded-for wins", map[string]string{"x-forwarded-for": "192.168.1.1", "x-real-ip": "192.168.1.2"}, "192.168.1.1"},
		{"whitespace", map[string]string{"x-forwarded-for": "  192.168.1.1  "}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), metadata.New(tt.md))
			if got := ClientIP(ctx); got != tt.want {
				t.Errorf("ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_PeerAddress(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345},
	})
	if ip := ClientIP(ctx); ip != "192.168.1.3" {
		t.Errorf("ip = %q, want %q", ip, "192.168.1.3")
	}
}

func TestClientIP_Unknown(t *testing.T) {
	if ip := ClientIP(context.Background()); ip != "" {
		t.Errorf("ip = %q, want empty", ip)
	}
}

func TestRequestAudit(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"user-agent":      "curl/8.5.0",
		"x-forwarded-for": "203.0.113.7",
	}))
	audit := RequestAudit(ctx)
	if audit.UserAgent != "curl/8.5.0" || audit.IPAddress != "203.0.113.7" {
		t.Errorf("audit = %+v", audit)
	}
}

func TestUserAgent_Truncated(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"user-agent": strings.Repeat("a", 600),
	}))
	if got := UserAgent(ctx); len(got) != maxUserAgentLen {
		t.Errorf("len(user agent) = %d, want %d", len(got), maxUserAgentLen)
	}
	if got := UserAgent(context.Background()); got != "" {
		t.Errorf("user agent without metadata = %q, want empty", got)
	}
}
