package hardware

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketPort 通过 WebSocket 串口桥访问设备
//
// gorilla 的连接在读超时后不可再读，所以由后台协程持续读取消息，
// Read 在轮询周期内等待消息通道。
type WebSocketPort struct {
	conn        *websocket.Conn
	url         string
	readTimeout time.Duration

	frames  chan []byte
	readErr error
	pending []byte

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

var _ Port = (*WebSocketPort)(nil)

// OpenWebSocket 连接 WebSocket 串口桥
func OpenWebSocket(url string, readTimeout time.Duration) (*WebSocketPort, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	p := &WebSocketPort{
		conn:        conn,
		url:         url,
		readTimeout: readTimeout,
		frames:      make(chan []byte, 64),
		done:        make(chan struct{}),
	}
	go p.readLoop()

	return p, nil
}

// readLoop 后台读取消息，文本帧和二进制帧都作为字节流
func (p *WebSocketPort) readLoop() {
	defer close(p.frames)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.readErr = err
			return
		}

		select {
		case p.frames <- data:
		case <-p.done:
			return
		}
	}
}

// Read 读取数据，轮询周期内无消息时返回 (0, nil)
func (p *WebSocketPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		timer := time.NewTimer(p.readTimeout)
		defer timer.Stop()

		select {
		case data, ok := <-p.frames:
			if !ok {
				return 0, p.closedErr()
			}
			p.pending = data
		case <-timer.C:
			return 0, nil
		}
	}

	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// closedErr 对端正常关闭时返回 io.EOF
func (p *WebSocketPort) closedErr() error {
	if p.readErr == nil || websocket.IsCloseError(p.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return p.readErr
}

func (p *WebSocketPort) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *WebSocketPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)

		p.writeMu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		p.writeMu.Unlock()

		err = p.conn.Close()
	})
	return err
}

func (p *WebSocketPort) Name() string {
	return p.url
}
