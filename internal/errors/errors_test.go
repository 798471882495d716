package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	// 测试带详情的错误
	err = New(ErrSerialPortOpen, "/dev/ttyUSB0")
	suite.Equal(ErrSerialPortOpen, err.Code)
	suite.Equal("串口打开失败", err.Message)
	suite.Equal("/dev/ttyUSB0", err.Details)

	// 测试多个详情
	err = New(ErrConfigValidate, "timeout必须大于0", "当前值: -1")
	suite.Equal("timeout必须大于0; 当前值: -1", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrSerialTimeout, "命令 %q 在 %ds 内未收到信标", "ping", 2)
	suite.Equal(ErrSerialTimeout, err.Code)
	suite.Equal(`命令 "ping" 在 2s 内未收到信标`, err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("no such file or directory")
	wrappedErr := Wrap(originalErr, ErrSerialPortOpen)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrSerialPortOpen, wrappedErr.Code)
	suite.Equal("no such file or directory", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError，保留原始错误码
	appErr := New(ErrSerialTimeout, "ping")
	wrappedAppErr := Wrap(appErr, ErrUnknown, "会话中止")
	suite.Equal(ErrSerialTimeout, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "会话中止")

	// fmt.Errorf包裹的AppError同样保留错误码
	chained := fmt.Errorf("run session: %w", New(ErrCanceled))
	suite.Equal(ErrCanceled, Wrap(chained, ErrUnknown).Code)
}

// 测试格式化错误包装
func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("input/output error")
	wrappedErr := Wrapf(originalErr, ErrSerialPortRead, "端口 %s 读取失败", "COM7")
	suite.Equal(ErrSerialPortRead, wrappedErr.Code)
	suite.Equal("端口 COM7 读取失败", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrCanceled)
	suite.True(Is(err, ErrCanceled))
	suite.False(Is(err, ErrSerialTimeout))
	suite.False(Is(nil, ErrCanceled))
	suite.False(Is(errors.New("标准错误"), ErrUnknown))
	suite.True(Is(fmt.Errorf("outer: %w", err), ErrCanceled))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrSerialPortWrite, GetCode(New(ErrSerialPortWrite)))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{
		Code:    ErrSerialTimeout,
		Message: "等待结束信标超时",
	}
	suite.Equal("[3003] 等待结束信标超时", err.Error())

	err.Details = "命令: ping"
	suite.Equal("[3003] 等待结束信标超时: 命令: ping", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrUnknown)
	suite.Equal(originalErr, wrappedErr.Unwrap())
	suite.True(errors.Is(wrappedErr, originalErr))

	suite.Nil(New(ErrUnknown).Unwrap())
}

// 测试WithDetails和WithCause
func (suite *ErrorsTestSuite) TestWithCause() {
	err := New(ErrSerialPortRead).WithDetails("设备已拔出")
	suite.Equal("设备已拔出", err.Details)

	cause := errors.New("broken pipe")
	err2 := New(ErrSerialPortWrite).WithCause(cause)
	suite.Equal(cause, err2.Cause)
	suite.Equal("broken pipe", err2.Details)

	// 已有Details的情况
	err3 := New(ErrSerialPortWrite, "写入命令失败").WithCause(cause)
	suite.Equal("写入命令失败", err3.Details)
}

// 测试退出码映射
func (suite *ErrorsTestSuite) TestExitCode() {
	testCases := []struct {
		err      error
		expected int
	}{
		{nil, ExitOK},
		{New(ErrSerialTimeout), ExitTimeout},
		{New(ErrSerialPortRead), ExitTransport},
		{New(ErrSerialPortWrite), ExitTransport},
		{New(ErrCanceled), ExitInterrupted},
		{New(ErrSerialPortOpen), ExitFailure},
		{New(ErrConfigValidate), ExitFailure},
		{errors.New("标准错误"), ExitFailure},
		{fmt.Errorf("session: %w", New(ErrSerialTimeout)), ExitTimeout},
	}

	for _, tc := range testCases {
		suite.Equal(tc.expected, ExitCode(tc.err), "错误 %v 的退出码应为 %d", tc.err, tc.expected)
	}
}

// 测试严重错误判断
func (suite *ErrorsTestSuite) TestIsCritical() {
	for _, code := range []ErrorCode{ErrInvalidParam, ErrSerialPortOpen, ErrConfigLoad, ErrConfigParse, ErrConfigValidate} {
		suite.True(IsCritical(New(code)), "错误码 %d 应该是严重错误", code)
	}

	for _, code := range []ErrorCode{ErrSerialTimeout, ErrCanceled, ErrSerialPortRead} {
		suite.False(IsCritical(New(code)), "错误码 %d 不应该是严重错误", code)
	}

	suite.False(IsCritical(nil))
}

// 测试调用栈捕获
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())

	suite.Empty((&AppError{}).GetStack())
}

// 测试未知错误码
func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

// 测试硬件相关错误
func (suite *ErrorsTestSuite) TestHardwareErrors() {
	hardwareErrors := map[ErrorCode]string{
		ErrSerialPortOpen:  "串口打开失败",
		ErrSerialPortWrite: "串口写入失败",
		ErrSerialPortRead:  "串口读取失败",
		ErrSerialTimeout:   "等待结束信标超时",
	}

	for code, expectedMsg := range hardwareErrors {
		suite.Equal(expectedMsg, New(code).Message)
	}
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
