package hardware

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/hil-runner/internal/config"
)

// 模拟设备的工作方式
const (
	SimDevice = "device" // 按测试命令行应答
	SimMute   = "mute"   // 只接收不应答
)

// SimulatedDevice 模拟固件测试模式下的命令行
//
// 每条命令以换行结束，应答后固定输出结束信标；行尾为 CRLF。
type SimulatedDevice struct {
	mu          sync.Mutex
	name        string
	mute        bool
	chunk       int
	readTimeout time.Duration

	out    bytes.Buffer
	in     []byte
	closed bool
	notify chan struct{}

	received []string
}

var _ Port = (*SimulatedDevice)(nil)

// OpenSimulator 打开模拟设备，地址形如 sim://device?chunk=3 或 sim://mute
func OpenSimulator(address string, readTimeout time.Duration) (*SimulatedDevice, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid simulator address %q: %w", address, err)
	}

	d := &SimulatedDevice{
		name:        address,
		readTimeout: readTimeout,
		notify:      make(chan struct{}, 1),
	}

	switch u.Host {
	case SimDevice, "":
	case SimMute:
		d.mute = true
	default:
		return nil, fmt.Errorf("unknown simulator mode %q", u.Host)
	}

	if v := u.Query().Get("chunk"); v != "" {
		d.chunk, err = strconv.Atoi(v)
		if err != nil || d.chunk < 0 {
			return nil, fmt.Errorf("invalid chunk size %q", v)
		}
	}

	if !d.mute {
		d.println("[sim] test mode ready")
	}

	return d, nil
}

// Write 接收主机发送的字节，遇到换行即执行一条命令
func (d *SimulatedDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, io.ErrClosedPipe
	}

	for _, c := range p {
		switch c {
		case '\n':
			command := strings.TrimSpace(string(d.in))
			d.in = d.in[:0]
			if command == "" {
				continue
			}
			d.received = append(d.received, command)
			if !d.mute {
				d.handleCommand(command)
			}
		case '\r':
			// 忽略回车符
		default:
			d.in = append(d.in, c)
		}
	}

	return len(p), nil
}

// handleCommand 处理一条命令，任何命令处理后都发送结束信标
func (d *SimulatedDevice) handleCommand(command string) {
	switch {
	case command == "ping":
		d.println("pong")
	case strings.HasPrefix(command, "echo "):
		d.println(command[len("echo "):])
	default:
		d.println("Error: Unknown command")
	}
	d.println(config.DefaultMarker)
}

// println 写入一行输出并唤醒等待中的 Read，调用方需持有锁
func (d *SimulatedDevice) println(line string) {
	d.out.WriteString(line)
	d.out.WriteString("\r\n")

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Read 读取设备输出，轮询周期内无数据时返回 (0, nil)
func (d *SimulatedDevice) Read(p []byte) (int, error) {
	timer := time.NewTimer(d.readTimeout)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return 0, io.EOF
		}
		if d.out.Len() > 0 {
			limit := len(p)
			if d.chunk > 0 && d.chunk < limit {
				limit = d.chunk
			}
			n, _ := d.out.Read(p[:limit])
			d.mu.Unlock()
			return n, nil
		}
		d.mu.Unlock()

		select {
		case <-d.notify:
		case <-timer.C:
			return 0, nil
		}
	}
}

// Received 返回设备已收到的命令
func (d *SimulatedDevice) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func (d *SimulatedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *SimulatedDevice) Name() string {
	return d.name
}
