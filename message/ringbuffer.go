package message

import (
	"io"
	"sync"
)

// NewRingBuffer 创建一个分块环形缓冲区,默认块大小 Options.ChunkSize
func NewRingBuffer(chunkSize ...int) *RingBuffer {
	size := Options.ChunkSize
	if len(chunkSize) > 0 && chunkSize[0] > 0 {
		size = chunkSize[0]
	}
	rb := &RingBuffer{ChunkSize: size, pool: chunkPool(size)}
	rb.AddLast()
	return rb
}

// RingBuffer 由固定大小块组成的字节队列,用于收发缓冲
//
//	First()[FirstIndex:] 为最早未读数据, Last()[LastIndex:] 为下一次写入位置
//	任何操作结束后 LastIndex < ChunkSize,即 Last() 总有可写空间
//	非线程安全,只能在同一个执行上下文中使用
type RingBuffer struct {
	ChunkSize  int
	FirstIndex int
	LastIndex  int
	chunks     [][]byte
	pool       *sync.Pool
}

// Length 未读字节数
func (this *RingBuffer) Length() int {
	if len(this.chunks) == 0 {
		return 0
	}
	return (len(this.chunks)-1)*this.ChunkSize + this.LastIndex - this.FirstIndex
}

// Chunks 当前持有的块数量
func (this *RingBuffer) Chunks() int {
	return len(this.chunks)
}

func (this *RingBuffer) First() []byte {
	if len(this.chunks) == 0 {
		this.AddLast()
	}
	return this.chunks[0]
}

func (this *RingBuffer) Last() []byte {
	if len(this.chunks) == 0 {
		this.AddLast()
	}
	return this.chunks[len(this.chunks)-1]
}

// AddLast 追加一个新块
func (this *RingBuffer) AddLast() {
	this.chunks = append(this.chunks, requireChunk(this.pool))
}

// RemoveFirst 回收第一个块,至少保留一个块
func (this *RingBuffer) RemoveFirst() {
	if len(this.chunks) == 0 {
		return
	}
	releaseChunk(this.pool, this.chunks[0])
	this.chunks[0] = nil
	this.chunks = this.chunks[1:]
	this.FirstIndex = 0
	if len(this.chunks) == 0 {
		this.AddLast()
		this.LastIndex = 0
	}
}

// Commit 外部直接写入 Last()[LastIndex:] 后提交 n 个字节
func (this *RingBuffer) Commit(n int) {
	this.LastIndex += n
	if this.LastIndex >= this.ChunkSize {
		this.AddLast()
		this.LastIndex = 0
	}
}

// Discard 丢弃最前面的 n 个字节,已经读完的块会被回收
func (this *RingBuffer) Discard(n int) int {
	if l := this.Length(); n > l {
		n = l
	}
	r := n
	for n > 0 {
		end := this.end()
		c := end - this.FirstIndex
		if c > n {
			c = n
		}
		this.FirstIndex += c
		n -= c
		if this.FirstIndex == this.ChunkSize {
			this.RemoveFirst()
		}
	}
	this.compact()
	return r
}

// Write 写入全部数据,不会部分写入
func (this *RingBuffer) Write(b []byte) (n int, err error) {
	n = len(b)
	for len(b) > 0 {
		c := copy(this.Last()[this.LastIndex:], b)
		b = b[c:]
		this.Commit(c)
	}
	return
}

// Read 读取 min(len(b),Length()) 个字节,缓冲区为空时返回 io.EOF
func (this *RingBuffer) Read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, nil
	}
	if this.Length() == 0 {
		return 0, io.EOF
	}
	for n < len(b) && this.Length() > 0 {
		c := copy(b[n:], this.chunks[0][this.FirstIndex:this.end()])
		n += c
		this.FirstIndex += c
		if this.FirstIndex == this.ChunkSize {
			this.RemoveFirst()
		}
	}
	this.compact()
	return
}

// ReadFrom 从r中读取数据直到 io.EOF
func (this *RingBuffer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		var c int
		c, err = r.Read(this.Last()[this.LastIndex:])
		if c > 0 {
			n += int64(c)
			this.Commit(c)
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return
		}
	}
}

// WriteTo 将全部未读数据写入w
func (this *RingBuffer) WriteTo(w io.Writer) (n int64, err error) {
	for this.Length() > 0 {
		var c int
		c, err = w.Write(this.chunks[0][this.FirstIndex:this.end()])
		n += int64(c)
		this.Discard(c)
		if err != nil {
			return
		}
	}
	return
}

// Release 回收全部块,之后不可再使用
func (this *RingBuffer) Release() {
	for _, c := range this.chunks {
		releaseChunk(this.pool, c)
	}
	this.chunks = nil
	this.FirstIndex = 0
	this.LastIndex = 0
}

// end 第一个块中可读数据的结束位置
func (this *RingBuffer) end() int {
	if len(this.chunks) == 1 {
		return this.LastIndex
	}
	return this.ChunkSize
}

// compact 读空时回到块首,重复利用唯一的块
func (this *RingBuffer) compact() {
	if len(this.chunks) == 1 && this.FirstIndex == this.LastIndex {
		this.FirstIndex = 0
		this.LastIndex = 0
	}
}
