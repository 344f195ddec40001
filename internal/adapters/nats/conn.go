package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"
)

// RawConn creates a plain NATS connection shared by the bus and the
// JetStream publisher.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("pinpoint"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
