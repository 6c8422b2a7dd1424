package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	sessiondomain "github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
)

const maxUserAgentLen = 512

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return ""
}

// UserAgent returns the caller's user-agent metadata, truncated to 512 bytes, or "".
func UserAgent(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("user-agent")
	if len(vals) == 0 {
		return ""
	}
	ua := strings.TrimSpace(vals[0])
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return ua
}

// RequestAudit returns the audit metadata recorded on sessions opened by this request.
func RequestAudit(ctx context.Context) sessiondomain.Audit {
	return sessiondomain.Audit{UserAgent: UserAgent(ctx), IPAddress: ClientIP(ctx)}
}
