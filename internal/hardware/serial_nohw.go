//go:build noserialhw
// +build noserialhw

package hardware

import (
	"fmt"

	"github.com/wfunc/hil-runner/internal/config"
)

// openSerial 无硬件版本，只支持 tcp:// ws:// sim:// 端口
func openSerial(cfg *config.SerialConfig) (Port, error) {
	return nil, fmt.Errorf("built without serial hardware support (noserialhw), cannot open %s", cfg.Port)
}
