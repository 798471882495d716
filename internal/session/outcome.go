package session

import "time"

// Outcome 会话结果
type Outcome int

const (
	// OutcomeSuccess 所有命令都在超时内收到结束信标
	OutcomeSuccess Outcome = iota
	// OutcomeObserved 被动观测按设计在超时后结束
	OutcomeObserved
	// OutcomeTimeout 某条命令未在超时内收到结束信标
	OutcomeTimeout
	// OutcomeInterrupted 被外部信号中断
	OutcomeInterrupted
	// OutcomeFailed 会话过程中传输通道出错
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeObserved:
		return "observed"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OK 结果是否视为通过
func (o Outcome) OK() bool {
	return o == OutcomeSuccess || o == OutcomeObserved
}

// Mode 会话模式
type Mode string

const (
	ModeActive  Mode = "active"
	ModePassive Mode = "passive"
)

// CommandResult 单条命令的执行情况
type CommandResult struct {
	Command     string        `json:"command"`
	Lines       int           `json:"lines"`
	MarkerFound bool          `json:"marker_found"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result 一次会话的结果
type Result struct {
	SessionID string          `json:"session_id"`
	Mode      Mode            `json:"mode"`
	Outcome   Outcome         `json:"outcome"`
	Commands  []CommandResult `json:"commands,omitempty"`
	Lines     int             `json:"lines"`
	Elapsed   time.Duration   `json:"elapsed"`
}
