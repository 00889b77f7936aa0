package kcp

import "encoding/binary"

// PacketType UDP数据包类型,所有整数小端
type PacketType byte

const (
	PacketTypeSYN PacketType = 1 // {SYN, localConnId}
	PacketTypeACK PacketType = 2 // {ACK, localConnId, remoteConnId}
	PacketTypeFIN PacketType = 3 // {FIN, localConnId, remoteConnId, errorCode}
	PacketTypeMSG PacketType = 4 // {MSG, localConnId, segment...}
)

const (
	HeaderSize = 5
	SYNSize    = HeaderSize
	ACKSize    = HeaderSize + 4
	FINSize    = HeaderSize + 8
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeSYN:
		return "SYN"
	case PacketTypeACK:
		return "ACK"
	case PacketTypeFIN:
		return "FIN"
	case PacketTypeMSG:
		return "MSG"
	default:
		return "UNKNOWN"
	}
}

func putHeader(b []byte, t PacketType, local uint32) {
	b[0] = byte(t)
	binary.LittleEndian.PutUint32(b[1:HeaderSize], local)
}

func EncodeSYN(local uint32) []byte {
	b := make([]byte, SYNSize)
	putHeader(b, PacketTypeSYN, local)
	return b
}

func EncodeACK(local, remote uint32) []byte {
	b := make([]byte, ACKSize)
	putHeader(b, PacketTypeACK, local)
	binary.LittleEndian.PutUint32(b[HeaderSize:], remote)
	return b
}

func EncodeFIN(local, remote uint32, code int) []byte {
	b := make([]byte, FINSize)
	putHeader(b, PacketTypeFIN, local)
	binary.LittleEndian.PutUint32(b[HeaderSize:], remote)
	binary.LittleEndian.PutUint32(b[ACKSize:], uint32(code))
	return b
}

// EncodeMSG 消息头+引擎数据,segment 为空时即握手确认
func EncodeMSG(local uint32, segment []byte) []byte {
	b := make([]byte, HeaderSize+len(segment))
	putHeader(b, PacketTypeMSG, local)
	copy(b[HeaderSize:], segment)
	return b
}

// Packet 解析后的数据包
type Packet struct {
	Type      PacketType
	Local     uint32 // 发送方连接ID
	Remote    uint32 // 接收方连接ID, ACK FIN
	ErrorCode int    // FIN
	Payload   []byte // MSG
}

// Decode 长度不足或者类型未知时返回false
func Decode(b []byte) (p Packet, ok bool) {
	if len(b) < HeaderSize {
		return
	}
	p.Type = PacketType(b[0])
	p.Local = binary.LittleEndian.Uint32(b[1:HeaderSize])
	switch p.Type {
	case PacketTypeSYN:
	case PacketTypeACK:
		if len(b) < ACKSize {
			return p, false
		}
		p.Remote = binary.LittleEndian.Uint32(b[HeaderSize:ACKSize])
	case PacketTypeFIN:
		if len(b) < FINSize {
			return p, false
		}
		p.Remote = binary.LittleEndian.Uint32(b[HeaderSize:ACKSize])
		p.ErrorCode = int(binary.LittleEndian.Uint32(b[ACKSize:FINSize]))
	case PacketTypeMSG:
		p.Payload = b[HeaderSize:]
	default:
		return p, false
	}
	return p, true
}
