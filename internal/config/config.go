package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	apperrors "github.com/wfunc/hil-runner/internal/errors"
)

// DefaultMarker 默认结束信标
const DefaultMarker = "<<EOT>>"

// CommandSeparator 多条命令之间的分隔符
const CommandSeparator = ";"

// Config 全局配置结构体
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// SerialConfig 串口配置
type SerialConfig struct {
	Port        string        `mapstructure:"port"`   // 串口号，或 tcp:// ws:// sim:// 地址
	Driver      string        `mapstructure:"driver"` // tarm 或 bugst
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // 单次轮询的最长等待
}

// SessionConfig 测试会话配置
type SessionConfig struct {
	Timeout     int           `mapstructure:"timeout"` // 秒
	Command     string        `mapstructure:"command"`
	Delay       int           `mapstructure:"delay"`  // 秒，发送命令前的额外延迟
	WarmUp      time.Duration `mapstructure:"warmup"` // 设备初始化等待
	Marker      string        `mapstructure:"marker"`
	PollBackoff time.Duration `mapstructure:"poll_backoff"`

	// CommandSupplied 显式提供了 --command（即使为空串）
	CommandSupplied bool `mapstructure:"-"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// flagBindings 命令行参数到配置键的映射
var flagBindings = map[string]string{
	"port":      "serial.port",
	"driver":    "serial.driver",
	"baud":      "serial.baud_rate",
	"timeout":   "session.timeout",
	"command":   "session.command",
	"delay":     "session.delay",
	"warmup":    "session.warmup",
	"marker":    "session.marker",
	"log-level": "log.level",
	"log-file":  "log.file.filename",
}

// NewFlagSet 创建命令行参数集
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "配置文件路径 (yaml/json/toml)")
	fs.String("port", DefaultPort(), "串口号，也支持 tcp://host:port、ws://host/path、sim://device")
	fs.String("driver", "tarm", "串口驱动: tarm 或 bugst")
	fs.Int("baud", 115200, "波特率")
	fs.Int("timeout", 30, "超时时间，单位为秒")
	fs.String("command", "", "要发送到设备的命令，多条命令用 ';' 分隔。\n"+
		"提供此参数时进入“主动执行”模式，每条命令都必须在超时内收到结束信标；\n"+
		"省略时进入“被动观测”模式，持续打印串口输出直到超时。")
	fs.Int("delay", 0, "发送命令前的额外延迟，单位为秒")
	fs.Duration("warmup", 2*time.Second, "主动模式下等待设备初始化的时间")
	fs.String("marker", DefaultMarker, "结束信标")
	fs.String("log-level", "info", "日志级别: debug/info/warn/error")
	fs.String("log-file", "", "日志文件名，设置后同时写入文件")
	fs.Bool("version", false, "显示版本信息")
	return fs
}

// Load 加载配置，优先级: 命令行 > 环境变量 > 配置文件 > 默认值
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hil")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("HIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, apperrors.Wrapf(err, apperrors.ErrConfigLoad, "绑定参数 --%s", name)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// 未指定配置文件且默认位置不存在时使用默认配置
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigLoad, configPath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigParse)
	}

	cfg.Session.CommandSupplied = cfg.Session.Command != "" ||
		(flags != nil && flags.Changed("command"))

	// 指定了日志文件时同时输出到文件
	if cfg.Log.File.Filename != "" && cfg.Log.Output == "stderr" {
		cfg.Log.Output = "both"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", DefaultPort())
	v.SetDefault("serial.driver", "tarm")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.read_timeout", "100ms")

	v.SetDefault("session.timeout", 30)
	v.SetDefault("session.command", "")
	v.SetDefault("session.delay", 0)
	v.SetDefault("session.warmup", "2s")
	v.SetDefault("session.marker", DefaultMarker)
	v.SetDefault("session.poll_backoff", "10ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "")
	v.SetDefault("log.file.max_size", 50)
	v.SetDefault("log.file.max_age", 14)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Serial.Port) == "" {
		problems = append(problems, "serial.port 不能为空")
	}
	switch c.Serial.Driver {
	case "tarm", "bugst":
	default:
		problems = append(problems, fmt.Sprintf("serial.driver 不支持: %q", c.Serial.Driver))
	}
	if c.Serial.BaudRate <= 0 {
		problems = append(problems, "serial.baud_rate 必须大于0")
	}
	if c.Serial.ReadTimeout <= 0 {
		problems = append(problems, "serial.read_timeout 必须大于0")
	}

	if c.Session.Timeout <= 0 {
		problems = append(problems, "session.timeout 必须大于0")
	}
	if c.Session.Delay < 0 {
		problems = append(problems, "session.delay 不能为负数")
	}
	if c.Session.WarmUp < 0 {
		problems = append(problems, "session.warmup 不能为负数")
	}
	if c.Session.PollBackoff < 0 {
		problems = append(problems, "session.poll_backoff 不能为负数")
	}
	// 提供了命令却解析不出任何命令时不能退化为被动观测
	if (c.Session.CommandSupplied || c.Session.Command != "") && len(c.Session.Commands()) == 0 {
		problems = append(problems, fmt.Sprintf("session.command 不包含有效命令: %q", c.Session.Command))
	}
	if strings.TrimSpace(c.Session.Marker) == "" {
		problems = append(problems, "session.marker 不能为空")
	}

	switch c.Log.Output {
	case "stderr", "file", "both":
	default:
		problems = append(problems, fmt.Sprintf("log.output 不支持: %q", c.Log.Output))
	}
	if (c.Log.Output == "file" || c.Log.Output == "both") && c.Log.File.Filename == "" {
		problems = append(problems, "log.file.filename 不能为空")
	}

	if len(problems) > 0 {
		return apperrors.New(apperrors.ErrConfigValidate, problems...)
	}
	return nil
}

// TimeoutDuration 每条命令（或被动观测）的超时时间
func (s SessionConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// DelayDuration 发送命令前的额外延迟
func (s SessionConfig) DelayDuration() time.Duration {
	return time.Duration(s.Delay) * time.Second
}

// Commands 解析后的命令列表，为空表示被动观测模式
func (s SessionConfig) Commands() []string {
	return ParseCommands(s.Command)
}

// ParseCommands 按分隔符拆分命令串，去除首尾空白并丢弃空命令
func ParseCommands(raw string) []string {
	var commands []string
	for _, part := range strings.Split(raw, CommandSeparator) {
		if cmd := strings.TrimSpace(part); cmd != "" {
			commands = append(commands, cmd)
		}
	}
	return commands
}
