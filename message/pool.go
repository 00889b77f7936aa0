package message

import "sync"

// chunks RingBuffer 块缓存池,块大小不同的RingBuffer各自使用独立的池
var chunks = sync.Map{}

func chunkPool(size int) *sync.Pool {
	if v, ok := chunks.Load(size); ok {
		return v.(*sync.Pool)
	}
	p := &sync.Pool{}
	p.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	v, _ := chunks.LoadOrStore(size, p)
	return v.(*sync.Pool)
}

func requireChunk(p *sync.Pool) []byte {
	b := p.Get().(*[]byte)
	return *b
}

func releaseChunk(p *sync.Pool, b []byte) {
	p.Put(&b)
}
