package kcp

// timer 连接下一次需要 Update 的时间
type timer struct {
	time uint32
	id   uint32
}

// timers 按时间排序的最小堆, container/heap
type timers []timer

func (h timers) Len() int {
	return len(h)
}

func (h timers) Less(i, j int) bool {
	return int32(h[i].time-h[j].time) < 0
}

func (h timers) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *timers) Push(x any) {
	*h = append(*h, x.(timer))
}

func (h *timers) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
