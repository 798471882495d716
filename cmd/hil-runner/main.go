package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/wfunc/hil-runner/internal/config"
	apperrors "github.com/wfunc/hil-runner/internal/errors"
	"github.com/wfunc/hil-runner/internal/hardware"
	"github.com/wfunc/hil-runner/internal/logger"
	"github.com/wfunc/hil-runner/internal/session"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行一次测试会话并返回退出码，设备输出写到 stdout
func run(args []string, stdout, stderr io.Writer) int {
	fs := config.NewFlagSet("hil-runner")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return apperrors.ExitOK
		}
		err = apperrors.Wrap(err, apperrors.ErrInvalidParam)
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return apperrors.ExitCode(err)
	}

	// 显示版本信息
	if showVersion, _ := fs.GetBool("version"); showVersion {
		printVersion(stdout)
		return apperrors.ExitOK
	}

	// 加载配置
	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return apperrors.ExitCode(err)
	}

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return apperrors.ExitFailure
	}
	defer logger.Cleanup()

	// Ctrl+C 或 SIGTERM 中断会话
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := hardware.Open(&cfg.Serial)
	if err != nil {
		reportSetupError(stderr, cfg, err, "无法打开串口")
		return apperrors.ExitCode(err)
	}

	ctrl := session.New(port, session.OptionsFromConfig(&cfg.Session), stdout,
		logger.GetModuleLogger("session"), nil)
	result, err := ctrl.Run(ctx)

	reportResult(result, err)
	return apperrors.ExitCode(err)
}

// reportSetupError 报告会话开始前的失败
//
// 日志只写文件时，严重错误仍然输出一行到 stderr。
func reportSetupError(stderr io.Writer, cfg *config.Config, err error, msg string) {
	logger.LogError(err, msg, zap.String("port", cfg.Serial.Port))

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		logger.GetLogger().Debug("错误调用栈", zap.String("stack", appErr.GetStack()))
	}

	if apperrors.IsCritical(err) && cfg.Log.Output == "file" {
		fmt.Fprintf(stderr, "%s: %v\n", msg, err)
	}
}

// reportResult 按会话结果选择日志级别
func reportResult(result *session.Result, err error) {
	fields := []zap.Field{
		zap.String("session_id", result.SessionID),
		zap.String("mode", string(result.Mode)),
		zap.Stringer("outcome", result.Outcome),
		zap.Int("commands", len(result.Commands)),
		zap.Duration("elapsed", result.Elapsed),
	}

	switch result.Outcome {
	case session.OutcomeSuccess, session.OutcomeObserved:
		logger.Info("测试结果", fields...)
	case session.OutcomeInterrupted:
		logger.Warn("测试结果", fields...)
	default:
		logger.Error("测试结果", append(fields, zap.Error(err))...)
	}
}

// printVersion 打印版本信息
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "hil-runner %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
