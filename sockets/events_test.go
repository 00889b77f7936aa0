package sockets

import "testing"

func TestListeners(t *testing.T) {
	var l Listeners[func() int]
	var order []int
	h1 := l.Add(func() int { order = append(order, 1); return 1 })
	h2 := l.Add(func() int { order = append(order, 2); return 2 })
	l.Add(func() int { order = append(order, 3); return 3 })
	l.Range(func(f func() int) { f() })
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("listeners order:%v", order)
	}
	if !l.Remove(h2) {
		t.Fatalf("Remove returned false")
	}
	if l.Remove(h2) {
		t.Fatalf("second Remove must be a no-op")
	}
	if h1 == h2 {
		t.Fatalf("duplicate handle")
	}
	order = nil
	l.Range(func(f func() int) { f() })
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("listeners order after remove:%v", order)
	}
}

func TestListeners_RemoveInsideRange(t *testing.T) {
	var l Listeners[func()]
	var h Handle
	called := 0
	h = l.Add(func() { called++; l.Remove(h) })
	l.Add(func() { called++ })
	l.Range(func(f func()) { f() })
	if called != 2 {
		t.Fatalf("snapshot range called:%v", called)
	}
	if l.Len() != 1 {
		t.Fatalf("Len:%v", l.Len())
	}
}
