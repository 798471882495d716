package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/hil-runner/internal/config"
	apperrors "github.com/wfunc/hil-runner/internal/errors"
	"github.com/wfunc/hil-runner/internal/hardware"
	"github.com/wfunc/hil-runner/internal/logger"
	"go.uber.org/zap"
)

// readBufferSize 单次读取的缓冲区大小
const readBufferSize = 1024

// Options 会话参数
type Options struct {
	Commands    []string      // 为空时进入被动观测模式
	Timeout     time.Duration // 每条命令（或被动观测）的超时
	WarmUp      time.Duration // 主动模式下的设备初始化等待
	Delay       time.Duration // 发送第一条命令前的额外延迟
	Marker      string
	PollBackoff time.Duration // 无数据时的轮询间隔
}

// OptionsFromConfig 由会话配置生成参数
func OptionsFromConfig(cfg *config.SessionConfig) Options {
	return Options{
		Commands:    cfg.Commands(),
		Timeout:     cfg.TimeoutDuration(),
		WarmUp:      cfg.WarmUp,
		Delay:       cfg.DelayDuration(),
		Marker:      cfg.Marker,
		PollBackoff: cfg.PollBackoff,
	}
}

// Controller 驱动一次测试会话
//
// Controller 持有串口，Run 返回前无论结果如何都会关闭串口。
// 分行器在整个会话内共享；只有命令发出之后读到的行才参与该命令的信标匹配，
// 同一批数据中信标之后的行只回显不匹配。
type Controller struct {
	port  hardware.Port
	opts  Options
	out   io.Writer
	log   *zap.Logger
	clock Clock

	framer *LineFramer
	buf    []byte
	result *Result
}

// New 创建会话控制器，out 为设备输出的回显目标
func New(port hardware.Port, opts Options, out io.Writer, log *zap.Logger, clock Clock) *Controller {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logger.GetModuleLogger("session")
	}
	if clock == nil {
		clock = RealClock()
	}
	if opts.Marker == "" {
		opts.Marker = config.DefaultMarker
	}

	return &Controller{
		port:   port,
		opts:   opts,
		out:    out,
		log:    log,
		clock:  clock,
		framer: NewLineFramer(),
		buf:    make([]byte, readBufferSize),
	}
}

// Mode 根据命令数量确定会话模式
func (c *Controller) Mode() Mode {
	if len(c.opts.Commands) == 0 {
		return ModePassive
	}
	return ModeActive
}

// Run 执行会话，返回结果以及导致非成功结果的错误
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	defer c.closePort()

	c.result = &Result{
		SessionID: uuid.New().String(),
		Mode:      c.Mode(),
	}
	c.log = c.log.With(zap.String("session_id", c.result.SessionID))

	start := c.clock.Now()

	var err error
	if c.result.Mode == ModePassive {
		err = c.observe(ctx)
	} else {
		err = c.execute(ctx)
	}

	c.result.Outcome = outcomeOf(c.result.Mode, err)
	c.result.Elapsed = c.clock.Now().Sub(start)
	c.logOutcome(err)

	return c.result, err
}

// observe 被动观测：持续回显设备输出，超时即结束
func (c *Controller) observe(ctx context.Context) error {
	c.log.Info("被动观测模式",
		zap.String("port", c.port.Name()),
		zap.Duration("timeout", c.opts.Timeout),
	)

	start := c.clock.Now()
	for {
		if _, err := c.poll(ctx); err != nil {
			return err
		}
		if c.clock.Now().Sub(start) > c.opts.Timeout {
			c.log.Info("观测时间已到")
			return nil
		}
	}
}

// execute 主动执行：依次发送命令，每条命令都必须收到结束信标
func (c *Controller) execute(ctx context.Context) error {
	c.log.Info("主动执行模式",
		zap.String("port", c.port.Name()),
		zap.Strings("commands", c.opts.Commands),
		zap.Duration("timeout", c.opts.Timeout),
		zap.String("marker", c.opts.Marker),
	)

	if c.opts.WarmUp > 0 {
		c.log.Info("等待设备初始化", zap.Duration("warmup", c.opts.WarmUp))
		if err := c.sleep(ctx, c.opts.WarmUp); err != nil {
			return err
		}
	}
	if c.opts.Delay > 0 {
		c.log.Info("发送命令前延迟", zap.Duration("delay", c.opts.Delay))
		if err := c.sleep(ctx, c.opts.Delay); err != nil {
			return err
		}
	}

	for i, cmd := range c.opts.Commands {
		cr, err := c.runCommand(ctx, i, cmd)
		c.result.Commands = append(c.result.Commands, cr)
		if err != nil {
			return err
		}
	}
	return nil
}

// runCommand 发送一条命令并等待结束信标
func (c *Controller) runCommand(ctx context.Context, index int, cmd string) (CommandResult, error) {
	cr := CommandResult{Command: cmd}

	if err := ctx.Err(); err != nil {
		return cr, apperrors.Wrap(err, apperrors.ErrCanceled)
	}

	c.log.Info("发送命令",
		zap.Int("index", index+1),
		zap.Int("total", len(c.opts.Commands)),
		zap.String("command", cmd),
	)
	logger.LogSerialLine(c.log, "tx", cmd)
	if _, err := c.port.Write([]byte(cmd + "\n")); err != nil {
		return cr, apperrors.Wrapf(err, apperrors.ErrSerialPortWrite, "%s: %v", c.port.Name(), err)
	}

	start := c.clock.Now()
	for {
		if elapsed := c.clock.Now().Sub(start); elapsed > c.opts.Timeout {
			cr.Elapsed = elapsed
			return cr, apperrors.Newf(apperrors.ErrSerialTimeout,
				"命令 %q 在 %s 内未收到 %s", cmd, c.opts.Timeout, c.opts.Marker)
		}

		lines, err := c.poll(ctx)
		if err != nil {
			return cr, err
		}

		// 读取跨过截止时间时，本轮数据不再计入该命令
		if c.clock.Now().Sub(start) > c.opts.Timeout {
			continue
		}

		for _, line := range lines {
			cr.Lines++
			if IsMarker(line, c.opts.Marker) {
				cr.MarkerFound = true
				cr.Elapsed = c.clock.Now().Sub(start)
				c.log.Info("收到结束信标",
					zap.String("command", cmd),
					zap.Duration("elapsed", cr.Elapsed),
				)
				return cr, nil
			}
		}
	}
}

// poll 读取一次串口并回显所有完整行，无数据时按轮询间隔等待
//
// 读取出错时，同时返回的数据仍会回显。
func (c *Controller) poll(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCanceled)
	}

	n, err := c.port.Read(c.buf)
	var lines [][]byte
	if n > 0 {
		c.framer.Feed(c.buf[:n])
		lines = c.framer.DrainLines()
		for _, line := range lines {
			c.echo(line)
		}
		c.result.Lines += len(lines)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrapf(err, apperrors.ErrSerialPortRead, "%s: %v", c.port.Name(), err)
	}
	if n == 0 {
		return nil, c.sleep(ctx, c.opts.PollBackoff)
	}
	return lines, nil
}

// echo 将一行设备输出写到回显目标
func (c *Controller) echo(line []byte) {
	text := strings.TrimRight(DisplayLine(line), "\r\n")
	fmt.Fprintln(c.out, text)
	logger.LogSerialLine(c.log, "rx", text)
}

// sleep 等待 d，期间可被取消
func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCanceled)
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.ErrCanceled)
	case <-c.clock.After(d):
		return nil
	}
}

func (c *Controller) closePort() {
	if err := c.port.Close(); err != nil {
		c.log.Warn("关闭串口失败", zap.String("port", c.port.Name()), zap.Error(err))
		return
	}
	c.log.Debug("串口已关闭", zap.String("port", c.port.Name()))
}

func (c *Controller) logOutcome(err error) {
	fields := []zap.Field{
		zap.Stringer("outcome", c.result.Outcome),
		zap.Int("lines", c.result.Lines),
		zap.Duration("elapsed", c.result.Elapsed),
	}

	switch c.result.Outcome {
	case OutcomeSuccess, OutcomeObserved:
		c.log.Info("会话结束", fields...)
	case OutcomeInterrupted:
		c.log.Warn("会话被中断", fields...)
	default:
		c.log.Error("会话失败", append(fields, zap.Error(err))...)
	}
}

// outcomeOf 将会话错误映射为结果
func outcomeOf(mode Mode, err error) Outcome {
	if err == nil {
		if mode == ModePassive {
			return OutcomeObserved
		}
		return OutcomeSuccess
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrSerialTimeout:
		return OutcomeTimeout
	case apperrors.ErrCanceled:
		return OutcomeInterrupted
	default:
		return OutcomeFailed
	}
}
