package kcp

import (
	"bytes"
	"testing"
)

func TestProtocol(t *testing.T) {
	if n := len(EncodeSYN(7)); n != 5 {
		t.Fatalf("SYN size:%v", n)
	}
	if n := len(EncodeACK(7, 9)); n != 9 {
		t.Fatalf("ACK size:%v", n)
	}
	if n := len(EncodeFIN(7, 9, 100001)); n != 13 {
		t.Fatalf("FIN size:%v", n)
	}
	if b := EncodeSYN(0x01020304); !bytes.Equal(b, []byte{1, 4, 3, 2, 1}) {
		t.Fatalf("SYN is not little endian:%v", b)
	}

	p, ok := Decode(EncodeFIN(7, 9, 100001))
	if !ok || p.Type != PacketTypeFIN || p.Local != 7 || p.Remote != 9 || p.ErrorCode != 100001 {
		t.Fatalf("Decode FIN:%+v %v", p, ok)
	}
	p, ok = Decode(EncodeMSG(3, []byte("seg")))
	if !ok || p.Type != PacketTypeMSG || p.Local != 3 || string(p.Payload) != "seg" {
		t.Fatalf("Decode MSG:%+v %v", p, ok)
	}
	if p, ok = Decode(EncodeMSG(3, nil)); !ok || len(p.Payload) != 0 {
		t.Fatalf("Decode empty MSG:%+v %v", p, ok)
	}
	if _, ok = Decode([]byte{2, 1, 0, 0, 0}); ok {
		t.Fatalf("short ACK accepted")
	}
	if _, ok = Decode([]byte{9, 1, 0, 0, 0}); ok {
		t.Fatalf("unknown type accepted")
	}
	if _, ok = Decode([]byte{1, 1}); ok {
		t.Fatalf("short header accepted")
	}
}

func TestTimers(t *testing.T) {
	h := timers{{time: 30, id: 1}, {time: 10, id: 2}}
	if !h.Less(1, 0) {
		t.Fatalf("Less")
	}
	wrap := timers{{time: 0xfffffff0, id: 1}, {time: 5, id: 2}}
	if !wrap.Less(0, 1) {
		t.Fatalf("Less must survive wrap around")
	}
}
