package hardware

import (
	"strings"

	"github.com/wfunc/hil-runner/internal/config"
	apperrors "github.com/wfunc/hil-runner/internal/errors"
	"github.com/wfunc/hil-runner/internal/logger"
	"go.uber.org/zap"
)

// DefaultBaudRate 默认波特率
const DefaultBaudRate = 115200

// 端口地址前缀
const (
	SchemeTCP = "tcp://"
	SchemeWS  = "ws://"
	SchemeWSS = "wss://"
	SchemeSim = "sim://"
)

// Open 按端口地址打开传输通道
//
// tcp:// 走串口服务器（如 ser2net），ws:// 与 wss:// 走 WebSocket 串口桥，
// sim:// 为内置模拟设备，其余按物理串口处理。
func Open(cfg *config.SerialConfig) (Port, error) {
	log := logger.GetModuleLogger("serial")

	var (
		port Port
		err  error
	)

	switch {
	case strings.HasPrefix(cfg.Port, SchemeTCP):
		port, err = OpenTCP(strings.TrimPrefix(cfg.Port, SchemeTCP), cfg.ReadTimeout)
	case strings.HasPrefix(cfg.Port, SchemeWS), strings.HasPrefix(cfg.Port, SchemeWSS):
		port, err = OpenWebSocket(cfg.Port, cfg.ReadTimeout)
	case strings.HasPrefix(cfg.Port, SchemeSim):
		port, err = OpenSimulator(cfg.Port, cfg.ReadTimeout)
	default:
		port, err = openSerial(cfg)
	}

	if err != nil {
		log.Error("打开串口失败",
			zap.String("port", cfg.Port),
			zap.Error(err))
		return nil, apperrors.Wrapf(err, apperrors.ErrSerialPortOpen, "%s: %v", cfg.Port, err)
	}

	log.Info("串口已打开",
		zap.String("port", port.Name()),
		zap.String("driver", cfg.Driver),
		zap.Int("baud_rate", cfg.BaudRate))

	return port, nil
}
