package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 3 * time.Second

// New connects to the broker and declares queue, so the publisher and the
// persist worker can start in either order.
func New(ctx context.Context, url, queue string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, queue); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s failed: %w", queue, err)
	}
	return conn, nil
}

// Healthy reports whether the connection is still open.
func Healthy(conn *amqp.Connection) bool {
	return conn != nil && !conn.IsClosed()
}
