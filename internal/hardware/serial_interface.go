package hardware

import "io"

// Port 设备传输接口
//
// Read 最多阻塞一个轮询周期（serial.read_timeout），期间没有数据时返回 (0, nil)，
// 调用方据此在循环中检查超时和取消。其它错误均表示链路已不可用。
type Port interface {
	io.ReadWriteCloser

	// Name 返回用于日志显示的端口名
	Name() string
}
