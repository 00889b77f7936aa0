package message

import "fmt"

type ParserState int8

const (
	ParserStatePacketSize ParserState = iota
	ParserStatePacketBody
)

// NewPacketParser 包头长度 packetSizeLength 只能是 2 或者 4
func NewPacketParser(packetSizeLength int, buffer *RingBuffer) (*PacketParser, error) {
	if MaxPacketSize(packetSizeLength) == 0 {
		return nil, ErrPacketSizeLength
	}
	p := &PacketParser{
		buffer:           buffer,
		packetSizeLength: packetSizeLength,
		head:             make([]byte, packetSizeLength),
	}
	return p, nil
}

// PacketParser 从 RingBuffer 中解析 [size][body] 格式的数据包
type PacketParser struct {
	buffer           *RingBuffer
	state            ParserState
	packetSize       int
	packetSizeLength int
	head             []byte
	packet           []byte
	ok               bool
}

func (p *PacketParser) State() ParserState {
	return p.state
}

// Parse 尝试解析一个完整包,返回true时通过 Packet 取走
//
//	包头长度非法时返回错误,调用者应当断开连接
func (p *PacketParser) Parse() (bool, error) {
	if p.ok {
		return true, nil
	}
	for {
		switch p.state {
		case ParserStatePacketSize:
			if p.buffer.Length() < p.packetSizeLength {
				return false, nil
			}
			_, _ = p.buffer.Read(p.head)
			size, err := PacketSize(p.head)
			if err != nil {
				return false, fmt.Errorf("recv packet size error: %v, %w", size, err)
			}
			p.packetSize = size
			p.state = ParserStatePacketBody
		case ParserStatePacketBody:
			if p.buffer.Length() < p.packetSize {
				return false, nil
			}
			if cap(p.packet) < p.packetSize {
				p.packet = make([]byte, p.packetSize)
			}
			p.packet = p.packet[:p.packetSize]
			_, _ = p.buffer.Read(p.packet)
			p.state = ParserStatePacketSize
			p.ok = true
			return true, nil
		}
	}
}

// Packet 取走已经解析完成的包体,数据在下一次 Parse 前有效
func (p *PacketParser) Packet() []byte {
	p.ok = false
	return p.packet
}
