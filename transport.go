package mayaboot

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts between Go values and byte slices for the bridge wire
// protocol. The bridge negotiates the codec at startup: MessagePack when the
// Python side has the msgpack package available, JSON otherwise.
type Serializer interface {
	// Marshal encodes a Go value to bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes bytes into a Go value.
	Unmarshal(data []byte, v interface{}) error
}

// MsgpackSerializer encodes messages with MessagePack.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackSerializer) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// JSONSerializer encodes messages with JSON. It is the fallback codec for
// Python interpreters without the msgpack package (a stock mayapy).
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Transport sends and receives whole byte messages over the bridge pipes.
type Transport interface {
	// Send transmits one message to the remote endpoint.
	Send(data []byte) error

	// Receive reads one complete message from the remote endpoint.
	Receive() ([]byte, error)
}

// frameBufSize is the pooled buffer size; it matches the Python side's read
// chunk size.
const frameBufSize = 8192

// BufferPool manages a pool of reusable byte slices to reduce GC pressure
// on the framing hot path. The channel-based design is safe for concurrent
// use without locks.
type BufferPool struct {
	pool    chan []byte
	bufSize int
}

// NewBufferPool creates a pool pre-populated with count buffers of bufSize
// bytes.
func NewBufferPool(bufSize, count int) *BufferPool {
	pool := make(chan []byte, count)
	for i := 0; i < count; i++ {
		pool <- make([]byte, bufSize)
	}
	return &BufferPool{
		pool:    pool,
		bufSize: bufSize,
	}
}

// Get returns a buffer from the pool, or allocates a new one if the pool is
// empty.
func (bp *BufferPool) Get() []byte {
	select {
	case buf := <-bp.pool:
		return buf
	default:
		return make([]byte, bp.bufSize)
	}
}

// Put returns a buffer to the pool for reuse. Buffers with the wrong
// capacity are discarded, as are buffers that no longer fit in the pool.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.bufSize {
		return
	}
	select {
	case bp.pool <- buf[:bp.bufSize]:
	default:
	}
}

// FrameTransport is a Transport carrying length-prefixed binary messages:
// a 4-byte big-endian length followed by the payload. The same framing is
// implemented by the Python bridge script.
type FrameTransport struct {
	reader io.Reader
	writer io.Writer
	pool   *BufferPool
}

// NewFrameTransport creates a FrameTransport over the given reader/writer
// pair. The reader must deliver the byte stream exactly as written by the
// remote endpoint (buffering is fine, reordering is not).
func NewFrameTransport(reader io.Reader, writer io.Writer) *FrameTransport {
	return &FrameTransport{
		reader: reader,
		writer: writer,
		pool:   NewBufferPool(frameBufSize, 10),
	}
}

// Send writes one length-prefixed message.
func (ft *FrameTransport) Send(data []byte) error {
	lengthBytes := ft.pool.Get()[:4]
	binary.BigEndian.PutUint32(lengthBytes, uint32(len(data)))
	if _, err := ft.writer.Write(lengthBytes); err != nil {
		ft.pool.Put(lengthBytes)
		return err
	}
	ft.pool.Put(lengthBytes)
	_, err := ft.writer.Write(data)
	return err
}

// Receive reads one length-prefixed message. Small messages are read through
// the buffer pool; oversized messages get a dedicated allocation.
func (ft *FrameTransport) Receive() ([]byte, error) {
	lengthBuf := ft.pool.Get()[:4]
	if _, err := io.ReadFull(ft.reader, lengthBuf); err != nil {
		ft.pool.Put(lengthBuf)
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf)
	ft.pool.Put(lengthBuf)

	if length <= uint32(ft.pool.bufSize) {
		buf := ft.pool.Get()[:length]
		if _, err := io.ReadFull(ft.reader, buf); err != nil {
			ft.pool.Put(buf)
			return nil, err
		}
		// Copy out so the pooled buffer can be reused immediately.
		result := make([]byte, length)
		copy(result, buf)
		ft.pool.Put(buf)
		return result, nil
	}

	data := make([]byte, length)
	_, err := io.ReadFull(ft.reader, data)
	return data, err
}
