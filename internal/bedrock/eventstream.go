package bedrock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// The agent runtime streams responses in the AWS event-stream framing
// (content type application/vnd.amazon.eventstream). Each message is:
//
//	prelude:  total length (4B BE) | headers length (4B BE) | prelude CRC32 (4B)
//	headers:  repeated {name len (1B) | name | value type (1B) | value}
//	payload:  total - headers - 16 bytes
//	trailer:  message CRC32 (4B) over everything before it
//
// Only the header value types the agent runtime actually emits are needed,
// but all wire types are decoded so unknown headers can be skipped.

const (
	preludeLen    = 12
	crcLen        = 4
	maxMessageLen = 16 * 1024 * 1024 // refuse absurd frames before allocating
)

// Header value wire types.
const (
	typeBoolTrue  = 0
	typeBoolFalse = 1
	typeByte      = 2
	typeShort     = 3
	typeInt       = 4
	typeLong      = 5
	typeByteArray = 6
	typeString    = 7
	typeTimestamp = 8
	typeUUID      = 9
)

var (
	errPreludeCRC = errors.New("eventstream: prelude checksum mismatch")
	errMessageCRC = errors.New("eventstream: message checksum mismatch")
)

// eventMessage is one decoded event-stream frame. Header values are kept as
// strings; non-string values are ignored since the agent runtime only keys
// routing off string headers (:message-type, :event-type, :exception-type).
type eventMessage struct {
	Headers map[string]string
	Payload []byte
}

// readEventMessage decodes the next frame from r. Returns io.EOF when the
// stream ends cleanly on a frame boundary.
func readEventMessage(r io.Reader) (*eventMessage, error) {
	prelude := make([]byte, preludeLen)
	if _, err := io.ReadFull(r, prelude); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("eventstream: truncated prelude: %w", err)
		}
		return nil, err
	}

	totalLen := binary.BigEndian.Uint32(prelude[0:4])
	headersLen := binary.BigEndian.Uint32(prelude[4:8])
	preludeCRC := binary.BigEndian.Uint32(prelude[8:12])

	if crc32.ChecksumIEEE(prelude[:8]) != preludeCRC {
		return nil, errPreludeCRC
	}
	if totalLen > maxMessageLen || totalLen < preludeLen+crcLen {
		return nil, fmt.Errorf("eventstream: invalid frame length %d", totalLen)
	}
	if headersLen > totalLen-preludeLen-crcLen {
		return nil, fmt.Errorf("eventstream: invalid headers length %d", headersLen)
	}

	rest := make([]byte, totalLen-preludeLen)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("eventstream: truncated frame: %w", err)
	}

	body := rest[:len(rest)-crcLen]
	messageCRC := binary.BigEndian.Uint32(rest[len(rest)-crcLen:])

	crc := crc32.NewIEEE()
	crc.Write(prelude)
	crc.Write(body)
	if crc.Sum32() != messageCRC {
		return nil, errMessageCRC
	}

	headers, err := decodeHeaders(body[:headersLen])
	if err != nil {
		return nil, err
	}

	return &eventMessage{
		Headers: headers,
		Payload: body[headersLen:],
	}, nil
}

// decodeHeaders parses the header block, keeping string-valued headers.
func decodeHeaders(buf []byte) (map[string]string, error) {
	headers := make(map[string]string)

	for len(buf) > 0 {
		nameLen := int(buf[0])
		buf = buf[1:]
		if len(buf) < nameLen+1 {
			return nil, errors.New("eventstream: truncated header name")
		}
		name := string(buf[:nameLen])
		valueType := buf[nameLen]
		buf = buf[nameLen+1:]

		switch valueType {
		case typeBoolTrue, typeBoolFalse:
			// no value bytes
		case typeByte:
			if len(buf) < 1 {
				return nil, errors.New("eventstream: truncated header value")
			}
			buf = buf[1:]
		case typeShort:
			if len(buf) < 2 {
				return nil, errors.New("eventstream: truncated header value")
			}
			buf = buf[2:]
		case typeInt:
			if len(buf) < 4 {
				return nil, errors.New("eventstream: truncated header value")
			}
			buf = buf[4:]
		case typeLong, typeTimestamp:
			if len(buf) < 8 {
				return nil, errors.New("eventstream: truncated header value")
			}
			buf = buf[8:]
		case typeUUID:
			if len(buf) < 16 {
				return nil, errors.New("eventstream: truncated header value")
			}
			buf = buf[16:]
		case typeByteArray, typeString:
			if len(buf) < 2 {
				return nil, errors.New("eventstream: truncated header value")
			}
			valueLen := int(binary.BigEndian.Uint16(buf[:2]))
			buf = buf[2:]
			if len(buf) < valueLen {
				return nil, errors.New("eventstream: truncated header value")
			}
			if valueType == typeString {
				headers[name] = string(buf[:valueLen])
			}
			buf = buf[valueLen:]
		default:
			return nil, fmt.Errorf("eventstream: unknown header value type %d", valueType)
		}
	}

	return headers, nil
}
