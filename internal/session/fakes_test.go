package session

import (
	"io"
	"sync"
	"time"
)

// fakeClock 只在被调用时前进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After 立即前进 d 并触发
func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Advance(d)
	return ch
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakePort 按脚本输出数据的串口，每次读取消耗 readCost 的时钟时间
type fakePort struct {
	clock    *fakeClock
	readCost time.Duration

	output [][]byte
	writes []string
	// writeTimes 每次写入时的时钟读数
	writeTimes []time.Time

	onWrite func(p *fakePort, data string)
	onRead  func(p *fakePort)

	readErr  error
	writeErr error
	closed   int
}

func newFakePort(clock *fakeClock) *fakePort {
	return &fakePort{clock: clock, readCost: time.Millisecond}
}

// emit 排队一块设备输出
func (p *fakePort) emit(chunks ...string) {
	for _, c := range chunks {
		p.output = append(p.output, []byte(c))
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if p.closed > 0 {
		return 0, io.ErrClosedPipe
	}
	p.clock.Advance(p.readCost)
	if p.onRead != nil {
		p.onRead(p)
	}
	if len(p.output) == 0 {
		return 0, p.readErr
	}

	n := copy(buf, p.output[0])
	if n < len(p.output[0]) {
		p.output[0] = p.output[0][n:]
	} else {
		p.output = p.output[1:]
	}
	return n, p.readErr
}

func (p *fakePort) Write(data []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, string(data))
	p.writeTimes = append(p.writeTimes, p.clock.Now())
	if p.onWrite != nil {
		p.onWrite(p, string(data))
	}
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func (p *fakePort) Name() string {
	return "fake://dut"
}

// replyWith 对每条命令回复 reply(cmd) 与结束信标
func replyWith(reply func(cmd string) string) func(p *fakePort, data string) {
	return func(p *fakePort, data string) {
		cmd := data[:len(data)-1]
		p.emit(reply(cmd) + "\r\n<<EOT>>\r\n")
	}
}
