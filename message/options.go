package message

import "errors"

var (
	ErrPacketSizeLength = errors.New("packet size length must be 2 or 4")
	ErrPacketSize       = errors.New("packet size illegal")
	ErrBufferEmpty      = errors.New("ring buffer is empty")
)

var Options = struct {
	ChunkSize        int //RingBuffer 单个块大小
	PacketSizeLength int //默认包头长度 2 或者 4
}{
	ChunkSize:        8192,
	PacketSizeLength: PacketSizeLength2,
}
