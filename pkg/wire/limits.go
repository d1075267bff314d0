package wire

const (
	DefaultMaxLine = 8 << 10
	DefaultMaxBody = 64 << 20
)

// Limits bounds what a reader accepts off the network.
// Zero fields fall back to DefaultMaxLine and DefaultMaxBody.
type Limits struct {
	// Longest start, header or chunk-size line, in bytes.
	MaxLine int
	// Largest decoded body, in bytes.
	MaxBody int64
}

func (l Limits) Line() int {
	if l.MaxLine <= 0 {
		return DefaultMaxLine
	}
	return l.MaxLine
}

func (l Limits) Body() int64 {
	if l.MaxBody <= 0 {
		return DefaultMaxBody
	}
	return l.MaxBody
}
