package testutils

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/slotscan/solana-indexer/pkg/clickhouse"
)

// NewTestClient wraps a provided connection (normally a mocks.MockConn) in a
// clickhouse.Client so repositories can be unit tested without a real
// ClickHouse instance.
func NewTestClient(conn driver.Conn) clickhouse.Client {
	return &testClient{conn: conn}
}

type testClient struct {
	conn driver.Conn
}

func (c *testClient) Conn() driver.Conn {
	return c.conn
}

func (c *testClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *testClient) Close() error {
	return c.conn.Close()
}
