//go:build !noserialhw
// +build !noserialhw

package hardware

import (
	"fmt"
	"strings"

	"github.com/wfunc/hil-runner/internal/config"
	"go.bug.st/serial"
)

// bugstPort 基于 go.bug.st/serial 的物理串口
type bugstPort struct {
	serial.Port
	name string
}

// openBugstSerial 打开串口并设置读超时，避免 Read 永久阻塞
func openBugstSerial(cfg *config.SerialConfig) (*bugstPort, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = DefaultBaudRate
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch strings.ToLower(cfg.Parity) {
	case "o", "odd":
		mode.Parity = serial.OddParity
	case "e", "even":
		mode.Parity = serial.EvenParity
	}
	if cfg.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &bugstPort{Port: port, name: cfg.Port}, nil
}

func (p *bugstPort) Name() string {
	return p.name
}
