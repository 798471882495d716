package session

import "time"

// Clock 抽象时间操作，测试中可替换为可控时钟
type Clock interface {
	// Now 返回当前时间
	Now() time.Time

	// After 在 d 之后向通道发送当前时间
	After(d time.Duration) <-chan time.Time
}

// realClock 使用 time 包的时钟
type realClock struct{}

// RealClock 返回真实时钟
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
