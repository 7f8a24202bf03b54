package bedrock

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeEventMessage builds a wire frame the way the service does, so the
// decoder can be exercised against well-formed input.
func encodeEventMessage(headers map[string]string, payload []byte) []byte {
	var hdr bytes.Buffer
	for name, value := range headers {
		hdr.WriteByte(byte(len(name)))
		hdr.WriteString(name)
		hdr.WriteByte(typeString)
		var vlen [2]byte
		binary.BigEndian.PutUint16(vlen[:], uint16(len(value)))
		hdr.Write(vlen[:])
		hdr.WriteString(value)
	}

	totalLen := preludeLen + hdr.Len() + len(payload) + crcLen

	var buf bytes.Buffer
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(totalLen))
	buf.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], uint32(hdr.Len()))
	buf.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(u32[:])

	buf.Write(hdr.Bytes())
	buf.Write(payload)

	binary.BigEndian.PutUint32(u32[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(u32[:])

	return buf.Bytes()
}

func TestReadEventMessage(t *testing.T) {
	frame := encodeEventMessage(map[string]string{
		":message-type": "event",
		":event-type":   "chunk",
	}, []byte(`{"bytes":"aGVsbG8="}`))

	msg, err := readEventMessage(bytes.NewReader(frame))
	require.NoError(t, err)

	assert.Equal(t, "event", msg.Headers[":message-type"])
	assert.Equal(t, "chunk", msg.Headers[":event-type"])
	assert.Equal(t, `{"bytes":"aGVsbG8="}`, string(msg.Payload))
}

func TestReadEventMessageSequence(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(encodeEventMessage(map[string]string{":event-type": "chunk"}, []byte("one")))
	stream.Write(encodeEventMessage(map[string]string{":event-type": "chunk"}, []byte("two")))

	msg1, err := readEventMessage(&stream)
	require.NoError(t, err)
	assert.Equal(t, "one", string(msg1.Payload))

	msg2, err := readEventMessage(&stream)
	require.NoError(t, err)
	assert.Equal(t, "two", string(msg2.Payload))

	_, err = readEventMessage(&stream)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadEventMessageEmptyPayload(t *testing.T) {
	frame := encodeEventMessage(map[string]string{":message-type": "event"}, nil)

	msg, err := readEventMessage(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Empty(t, msg.Payload)
}

func TestReadEventMessageBadPreludeCRC(t *testing.T) {
	frame := encodeEventMessage(nil, []byte("x"))
	frame[8] ^= 0xff // corrupt prelude CRC

	_, err := readEventMessage(bytes.NewReader(frame))
	assert.ErrorIs(t, err, errPreludeCRC)
}

func TestReadEventMessageBadMessageCRC(t *testing.T) {
	frame := encodeEventMessage(nil, []byte("payload"))
	frame[len(frame)-1] ^= 0xff // corrupt trailing CRC

	_, err := readEventMessage(bytes.NewReader(frame))
	assert.ErrorIs(t, err, errMessageCRC)
}

func TestReadEventMessageTruncated(t *testing.T) {
	frame := encodeEventMessage(map[string]string{":event-type": "chunk"}, []byte("data"))

	_, err := readEventMessage(bytes.NewReader(frame[:len(frame)-3]))
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF, "mid-frame truncation must not look like clean EOF")
}

func TestDecodeHeadersSkipsNonStringTypes(t *testing.T) {
	var buf bytes.Buffer

	// bool header, no value bytes
	buf.WriteByte(4)
	buf.WriteString("flag")
	buf.WriteByte(typeBoolTrue)

	// int header, 4 value bytes
	buf.WriteByte(3)
	buf.WriteString("num")
	buf.WriteByte(typeInt)
	buf.Write([]byte{0, 0, 0, 42})

	// string header
	buf.WriteByte(4)
	buf.WriteString("name")
	buf.WriteByte(typeString)
	buf.Write([]byte{0, 5})
	buf.WriteString("value")

	headers, err := decodeHeaders(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "value", headers["name"])
	assert.NotContains(t, headers, "flag")
	assert.NotContains(t, headers, "num")
}

func TestDecodeHeadersTruncated(t *testing.T) {
	buf := []byte{5, 'a', 'b'} // claims a 5-byte name, only 2 present
	_, err := decodeHeaders(buf)
	assert.Error(t, err)
}
