package direwolf

// AGWPE socket protocol message.  All multi-byte integers are
// little endian on the wire.  The header is a fixed 36 bytes
// followed by DataLen bytes of data.

import (
	"encoding/binary"
	"io"
)

type AGWPEHeader struct {
	Portx        byte
	Reserved1    byte
	Reserved2    byte
	Reserved3    byte
	DataKind     byte
	Reserved4    byte
	PID          byte
	Reserved5    byte
	CallFrom     [10]byte
	CallTo       [10]byte
	DataLen      uint32
	UserReserved [4]byte
}

const AGWPE_HEADER_SIZE = 36

type AGWPEMessage struct {
	Header AGWPEHeader
	Data   []byte
}

func (m *AGWPEMessage) Write(w io.Writer, order binary.ByteOrder) (int, error) {
	var writeErr = binary.Write(w, order, m.Header)
	if writeErr != nil {
		return 0, writeErr
	}

	var n, dataErr = w.Write(m.Data[:m.Header.DataLen])

	return AGWPE_HEADER_SIZE + n, dataErr
}
