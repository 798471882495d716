//go:build !noserialhw
// +build !noserialhw

package hardware

import (
	"github.com/wfunc/hil-runner/internal/config"
)

// openSerial 按配置的驱动打开物理串口
func openSerial(cfg *config.SerialConfig) (Port, error) {
	if cfg.Driver == "bugst" {
		port, err := openBugstSerial(cfg)
		if err != nil {
			return nil, err
		}
		return port, nil
	}

	port, err := openTarmSerial(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}
