package message

import (
	"encoding/binary"
	"math"
)

const (
	PacketSizeLength2 = 2
	PacketSizeLength4 = 4
	MinPacketSize     = 2
)

// MaxPacketSize 不同包头长度允许的最大包体
func MaxPacketSize(packetSizeLength int) int {
	switch packetSizeLength {
	case PacketSizeLength4:
		return math.MaxUint16 * 16
	case PacketSizeLength2:
		return math.MaxUint16
	default:
		return 0
	}
}

// PutPacketSize 将包体长度以小端写入head, head 长度即包头长度
func PutPacketSize(head []byte, size int) error {
	limit := MaxPacketSize(len(head))
	if limit == 0 {
		return ErrPacketSizeLength
	}
	if size < MinPacketSize || size > limit {
		return ErrPacketSize
	}
	if len(head) == PacketSizeLength4 {
		binary.LittleEndian.PutUint32(head, uint32(size))
	} else {
		binary.LittleEndian.PutUint16(head, uint16(size))
	}
	return nil
}

// PacketSize 从包头读取包体长度并校验
func PacketSize(head []byte) (int, error) {
	var size int
	switch len(head) {
	case PacketSizeLength4:
		size = int(int32(binary.LittleEndian.Uint32(head)))
	case PacketSizeLength2:
		size = int(binary.LittleEndian.Uint16(head))
	default:
		return 0, ErrPacketSizeLength
	}
	if size < MinPacketSize || size > MaxPacketSize(len(head)) {
		return size, ErrPacketSize
	}
	return size, nil
}

// Pack 生成完整的数据包 包头+包体
func Pack(packetSizeLength int, body []byte) ([]byte, error) {
	b := make([]byte, packetSizeLength+len(body))
	if err := PutPacketSize(b[:packetSizeLength], len(body)); err != nil {
		return nil, err
	}
	copy(b[packetSizeLength:], body)
	return b, nil
}
