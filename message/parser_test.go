package message

import (
	"bytes"
	"errors"
	"testing"
)

func TestPacketParser_RoundTrip(t *testing.T) {
	for _, size := range []int{PacketSizeLength2, PacketSizeLength4} {
		rb := NewRingBuffer(64)
		parser, err := NewPacketParser(size, rb)
		if err != nil {
			t.Fatal(err)
		}
		bodies := [][]byte{
			sequence(MinPacketSize),
			[]byte("ping"),
			sequence(63),
			sequence(64),
			sequence(1000),
			sequence(MaxPacketSize(PacketSizeLength2)),
		}
		for _, body := range bodies {
			b, err := Pack(size, body)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = rb.Write(b)
		}
		for i, body := range bodies {
			ok, err := parser.Parse()
			if err != nil || !ok {
				t.Fatalf("size %v packet %v Parse:%v %v", size, i, ok, err)
			}
			if !bytes.Equal(parser.Packet(), body) {
				t.Fatalf("size %v packet %v not equal", size, i)
			}
		}
		if ok, _ := parser.Parse(); ok {
			t.Errorf("size %v parse without data", size)
		}
	}
}

func TestPacketParser_Partial(t *testing.T) {
	rb := NewRingBuffer(8)
	parser, _ := NewPacketParser(PacketSizeLength2, rb)
	b, _ := Pack(PacketSizeLength2, []byte("hello world"))
	for i, c := range b {
		_, _ = rb.Write([]byte{c})
		ok, err := parser.Parse()
		if err != nil {
			t.Fatal(err)
		}
		if ok != (i == len(b)-1) {
			t.Fatalf("byte %v Parse:%v", i, ok)
		}
	}
	if ok, _ := parser.Parse(); !ok {
		t.Fatalf("unread packet must stay ready")
	}
	if string(parser.Packet()) != "hello world" {
		t.Errorf("packet illegal")
	}
	if parser.State() != ParserStatePacketSize {
		t.Errorf("parser state:%v", parser.State())
	}
}

func TestPacketParser_Wire(t *testing.T) {
	b, err := Pack(PacketSizeLength2, []byte("ping"))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x04, 0x00, 'p', 'i', 'n', 'g'}
	if !bytes.Equal(b, want) {
		t.Fatalf("wire bytes:%v want %v", b, want)
	}
}

func TestPacketParser_IllegalSize(t *testing.T) {
	cases := []struct {
		size int
		head []byte
	}{
		{PacketSizeLength2, []byte{0x01, 0x00}},
		{PacketSizeLength2, []byte{0x00, 0x00}},
		{PacketSizeLength4, []byte{0x01, 0x00, 0x00, 0x00}},
		{PacketSizeLength4, []byte{0x01, 0x00, 0x10, 0x00}},
		{PacketSizeLength4, []byte{0xff, 0xff, 0xff, 0xff}},
	}
	for _, c := range cases {
		rb := NewRingBuffer(16)
		parser, _ := NewPacketParser(c.size, rb)
		_, _ = rb.Write(c.head)
		_, _ = rb.Write(sequence(8))
		ok, err := parser.Parse()
		if ok || !errors.Is(err, ErrPacketSize) {
			t.Errorf("head %v Parse:%v %v", c.head, ok, err)
		}
	}
	if _, err := NewPacketParser(3, NewRingBuffer()); !errors.Is(err, ErrPacketSizeLength) {
		t.Errorf("NewPacketParser(3):%v", err)
	}
	if _, err := Pack(PacketSizeLength2, sequence(MaxPacketSize(PacketSizeLength2)+1)); !errors.Is(err, ErrPacketSize) {
		t.Errorf("Pack oversize:%v", err)
	}
}
