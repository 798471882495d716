package session

import (
	"bytes"
	"strings"
)

// LineFramer 将任意分块的字节流切分为以换行结尾的完整行
//
// 缓冲区在两次 DrainLines 之间最多保留一段未结束的行，
// 跨块到达的换行符同样能被识别。
type LineFramer struct {
	buf []byte
}

// NewLineFramer 创建分行器
func NewLineFramer() *LineFramer {
	return &LineFramer{}
}

// Feed 追加一块原始数据，空块不做任何事
func (f *LineFramer) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	f.buf = append(f.buf, chunk...)
}

// DrainLines 取出缓冲区中所有完整行（包含换行符），按到达顺序返回
func (f *LineFramer) DrainLines() [][]byte {
	var lines [][]byte
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx+1)
		copy(line, f.buf[:idx+1])
		lines = append(lines, line)
		f.buf = f.buf[idx+1:]
	}

	// 缓冲区已清空时释放底层数组
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines
}

// Pending 返回尚未结束的残留片段
func (f *LineFramer) Pending() []byte {
	return f.buf
}

// Reset 丢弃所有缓冲数据
func (f *LineFramer) Reset() {
	f.buf = nil
}

// DisplayLine 将一行字节转为可显示文本，非法 UTF-8 序列被丢弃
func DisplayLine(line []byte) string {
	return strings.ToValidUTF8(string(line), "")
}

// IsMarker 判断一行是否为结束信标，两侧空白（含 \r\n）均被忽略
func IsMarker(line []byte, marker string) bool {
	return string(bytes.TrimSpace(line)) == strings.TrimSpace(marker)
}
