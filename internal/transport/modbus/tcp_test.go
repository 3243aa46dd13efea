// internal/transport/modbus/tcp_test.go
package modbus

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbrandon/mbserver"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestClient_TCPAgainstServer(t *testing.T) {
	srv := mbserver.NewServer()
	addr := freeAddr(t)
	require.NoError(t, srv.ListenTCP(addr))
	defer srv.Close()

	srv.HoldingRegisters[0x3001] = 120
	srv.HoldingRegisters[0x3002] = 2200
	srv.InputRegisters[0x0000] = 2301

	c, err := New(Config{Mode: ModeTCP, Endpoint: addr, Timeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	regs, err := c.ReadHoldingRegisters(1, 0x3001, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{120, 2200}, regs)

	regs, err = c.ReadInputRegisters(1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2301}, regs)

	require.NoError(t, c.WriteSingleRegister(1, 0x1000, 7))
	assert.Equal(t, uint16(7), srv.HoldingRegisters[0x1000])

	assert.Equal(t, addr, c.Metadata()["endpoint"])
	assert.True(t, c.IsConnected())
}
