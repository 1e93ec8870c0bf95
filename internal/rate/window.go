package rate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const windowRecordVersionV1 = 1

// Window is the stored state of one identifier's current window.
type Window struct {
	Identifier   string
	Count        int
	ResetAt      time.Time
	FirstRequest time.Time
}

// Open reports whether the window is still accepting counts at now.
func (w *Window) Open(now time.Time) bool {
	return w != nil && now.Before(w.ResetAt)
}

func encodeWindow(w *Window) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(windowRecordVersionV1)

	if w.Count < 0 || w.Count > int(^uint32(0)>>1) {
		return nil, errors.New("window count out of range")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(w.Count)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, w.ResetAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, w.FirstRequest.UnixMilli()); err != nil {
		return nil, err
	}

	if len(w.Identifier) > 65535 {
		return nil, errors.New("window identifier too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(w.Identifier))); err != nil {
		return nil, err
	}
	buf.WriteString(w.Identifier)

	return buf.Bytes(), nil
}

func decodeWindow(data []byte) (*Window, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != windowRecordVersionV1 {
		return nil, errors.New("invalid window record version")
	}

	var (
		count        uint32
		resetAt      int64
		firstRequest int64
		idLen        uint16
	)
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &resetAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &firstRequest); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}

	identifier := make([]byte, idLen)
	if _, err := io.ReadFull(reader, identifier); err != nil {
		return nil, err
	}

	return &Window{
		Identifier:   string(identifier),
		Count:        int(count),
		ResetAt:      time.UnixMilli(resetAt),
		FirstRequest: time.UnixMilli(firstRequest),
	}, nil
}
