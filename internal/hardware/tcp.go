package hardware

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// TCPPort 通过 TCP 连接的串口服务器（ser2net 等）
type TCPPort struct {
	conn        net.Conn
	address     string
	readTimeout time.Duration
}

var _ Port = (*TCPPort)(nil)

// OpenTCP 建立 TCP 连接
func OpenTCP(address string, readTimeout time.Duration) (*TCPPort, error) {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	return &TCPPort{conn: conn, address: address, readTimeout: readTimeout}, nil
}

// Read 每次读取设置截止时间，超时视为本轮无数据
func (t *TCPPort) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}

	n, err := t.conn.Read(p)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *TCPPort) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *TCPPort) Close() error {
	return t.conn.Close()
}

func (t *TCPPort) Name() string {
	return SchemeTCP + t.address
}
