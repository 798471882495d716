package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/hil-runner/internal/errors"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"空串为被动模式", "", nil},
		{"单条命令", "ping", []string{"ping"}},
		{"去除空白和空命令", "CMD1 ; ;CMD2", []string{"CMD1", "CMD2"}},
		{"只有分隔符", " ; ;; ", nil},
		{"保留命令内部空格", "echo hello world;ping", []string{"echo hello world", "ping"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommands(tt.raw))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort(), cfg.Serial.Port)
	assert.Equal(t, "tarm", cfg.Serial.Driver)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)

	assert.Equal(t, 30*time.Second, cfg.Session.TimeoutDuration())
	assert.Equal(t, time.Duration(0), cfg.Session.DelayDuration())
	assert.Equal(t, 2*time.Second, cfg.Session.WarmUp)
	assert.Equal(t, DefaultMarker, cfg.Session.Marker)
	assert.Equal(t, 10*time.Millisecond, cfg.Session.PollBackoff)
	assert.Empty(t, cfg.Session.Commands())

	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoad_Flags(t *testing.T) {
	fs := NewFlagSet("hil-runner")
	require.NoError(t, fs.Parse([]string{
		"--port", "sim://device",
		"--timeout", "5",
		"--command", "ping; echo hi",
		"--delay", "1",
		"--warmup", "500ms",
		"--driver", "bugst",
	}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "sim://device", cfg.Serial.Port)
	assert.Equal(t, "bugst", cfg.Serial.Driver)
	assert.Equal(t, 5*time.Second, cfg.Session.TimeoutDuration())
	assert.Equal(t, time.Second, cfg.Session.DelayDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.Session.WarmUp)
	assert.Equal(t, []string{"ping", "echo hi"}, cfg.Session.Commands())
}

func TestLoad_EnvOverridesFlagDefault(t *testing.T) {
	t.Setenv("HIL_SESSION_TIMEOUT", "7")
	t.Setenv("HIL_SERIAL_PORT", "tcp://127.0.0.1:4000")

	fs := NewFlagSet("hil-runner")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Session.Timeout)
	assert.Equal(t, "tcp://127.0.0.1:4000", cfg.Serial.Port)

	// 显式参数优先于环境变量
	require.NoError(t, fs.Parse([]string{"--timeout", "3"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.Timeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hil.yaml")
	content := `
serial:
  port: sim://mute
  read_timeout: 250ms
session:
  timeout: 12
  command: "a;b;c"
  marker: "<<DONE>>"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "sim://mute", cfg.Serial.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 12, cfg.Session.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Session.Commands())
	assert.Equal(t, "<<DONE>>", cfg.Session.Marker)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigLoad))
}

func TestLoad_EmptyCommandFlag(t *testing.T) {
	for _, raw := range []string{"", " ; ", ";;"} {
		fs := NewFlagSet("hil-runner")
		require.NoError(t, fs.Parse([]string{"--command", raw}))

		_, err := Load("", fs)
		require.Error(t, err, "--command %q", raw)
		assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))
	}

	// 未提供命令仍是被动观测
	fs := NewFlagSet("hil-runner")
	require.NoError(t, fs.Parse(nil))
	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.False(t, cfg.Session.CommandSupplied)
	assert.Empty(t, cfg.Session.Commands())
}

func TestLoad_LogFileEnablesFileOutput(t *testing.T) {
	fs := NewFlagSet("hil-runner")
	require.NoError(t, fs.Parse([]string{"--log-file", "run.log"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "both", cfg.Log.Output)
	assert.Equal(t, "run.log", cfg.Log.File.Filename)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"超时为0", func(c *Config) { c.Session.Timeout = 0 }},
		{"负延迟", func(c *Config) { c.Session.Delay = -1 }},
		{"空信标", func(c *Config) { c.Session.Marker = "  " }},
		{"命令只有分隔符", func(c *Config) { c.Session.Command = " ; " }},
		{"显式提供空命令", func(c *Config) { c.Session.CommandSupplied = true }},
		{"空串口", func(c *Config) { c.Serial.Port = "" }},
		{"未知驱动", func(c *Config) { c.Serial.Driver = "usb" }},
		{"波特率为0", func(c *Config) { c.Serial.BaudRate = 0 }},
		{"轮询超时为0", func(c *Config) { c.Serial.ReadTimeout = 0 }},
		{"文件输出缺少文件名", func(c *Config) { c.Log.Output = "file" }},
		{"未知输出", func(c *Config) { c.Log.Output = "syslog" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrConfigValidate))
		})
	}

	assert.NoError(t, valid().Validate())
}
