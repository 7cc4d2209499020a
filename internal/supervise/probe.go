package supervise

import (
	"context"
	"net"
	"time"
)

// Probe attempts one readiness check against addr; nil means the target is
// accepting connections.
type Probe func(ctx context.Context, addr string) error

// TCPProbe dials addr once with a short timeout.
func TCPProbe(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}
