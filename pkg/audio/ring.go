package audio

import (
	"errors"
	"sync"

	"github.com/smallnest/ringbuffer"
)

// FrameQueue buffers raw PCM frames between the websocket read loop and the
// recognition sender, so outbound synthesis can never stall the microphone
// path. When full it drops the oldest frames first.
//
// Frames are stored length-prefixed (4 bytes, little endian) inside a single
// byte ring.
type FrameQueue struct {
	mu sync.Mutex
	rb *ringbuffer.RingBuffer
}

func NewFrameQueue(size int) *FrameQueue {
	return &FrameQueue{
		rb: ringbuffer.New(size).SetBlocking(false),
	}
}

// Enqueue appends one PCM frame, evicting the oldest frames if needed.
func (q *FrameQueue) Enqueue(frame []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	required := len(frame) + 4
	if required > q.rb.Capacity() {
		return errors.New("audio frame too large for buffer")
	}

	for q.rb.Free() < required {
		if !q.dropOldestLocked() {
			q.rb.Reset()
			break
		}
	}

	var prefix [4]byte
	putUint32LE(prefix[:], uint32(len(frame)))
	if _, err := q.rb.Write(prefix[:]); err != nil {
		return err
	}
	_, err := q.rb.Write(frame)
	return err
}

// Dequeue pops the oldest frame, if any.
func (q *FrameQueue) Dequeue() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readFrameLocked(false)
}

// Len reports the buffered byte count, prefixes included.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rb.Length()
}

func (q *FrameQueue) dropOldestLocked() bool {
	_, ok := q.readFrameLocked(true)
	return ok
}

func (q *FrameQueue) readFrameLocked(discard bool) ([]byte, bool) {
	if q.rb.IsEmpty() {
		return nil, false
	}

	prefix := make([]byte, 4)
	n, err := q.rb.Read(prefix)
	if err != nil || n != 4 {
		return nil, false
	}
	size := int(getUint32LE(prefix))

	data := make([]byte, size)
	n, err = q.rb.Read(data)
	if err != nil || n != size {
		return nil, false
	}
	if discard {
		return nil, true
	}
	return data, true
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
