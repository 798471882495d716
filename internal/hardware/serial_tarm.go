//go:build !noserialhw
// +build !noserialhw

package hardware

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tarm/serial"
	"github.com/wfunc/hil-runner/internal/config"
)

// tarmPort 基于 github.com/tarm/serial 的物理串口
type tarmPort struct {
	port *serial.Port
	name string
}

// openTarmSerial 打开串口（8N1，ReadTimeout 作为轮询周期）
func openTarmSerial(cfg *config.SerialConfig) (*tarmPort, error) {
	// 解析校验位
	parity := serial.ParityNone
	switch strings.ToLower(cfg.Parity) {
	case "o", "odd":
		parity = serial.ParityOdd
	case "e", "even":
		parity = serial.ParityEven
	}

	stopBits := serial.Stop1
	if cfg.StopBits == 2 {
		stopBits = serial.Stop2
	}

	dataBits := byte(cfg.DataBits)
	if dataBits == 0 {
		dataBits = 8
	}

	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        baud,
		Size:        dataBits,
		Parity:      parity,
		StopBits:    stopBits,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}

	return &tarmPort{port: port, name: cfg.Port}, nil
}

// Read 读取数据，超时返回的 EOF 视为本轮无数据
func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (p *tarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *tarmPort) Close() error {
	return p.port.Close()
}

func (p *tarmPort) Name() string {
	return p.name
}
