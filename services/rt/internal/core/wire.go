package core

import (
	"encoding/binary"
	"strconv"

	"devicert-go/errcode"
)

// Wire helpers for scheme payloads. All integers are little-endian.

// ExpectLen rejects a payload whose width differs from n.
func ExpectLen(op string, buf []byte, n int) error {
	if len(buf) != n {
		return errcode.New(errcode.InvalidInput, op,
			"want "+strconv.Itoa(n)+" bytes, got "+strconv.Itoa(len(buf)))
	}
	return nil
}

// ExpectMin rejects a read buffer that cannot hold n bytes.
func ExpectMin(op string, buf []byte, n int) error {
	if len(buf) < n {
		return short(op, n)
	}
	return nil
}

func short(op string, need int) error {
	return errcode.New(errcode.InvalidInput, op, "buffer shorter than "+strconv.Itoa(need))
}

func PutBool(op string, buf []byte, v bool) (int, error) {
	if len(buf) < 1 {
		return 0, short(op, 1)
	}
	buf[0] = 0
	if v {
		buf[0] = 1
	}
	return 1, nil
}

func PutU8(op string, buf []byte, v uint8) (int, error) {
	if len(buf) < 1 {
		return 0, short(op, 1)
	}
	buf[0] = v
	return 1, nil
}

func PutU16(op string, buf []byte, v uint16) (int, error) {
	if len(buf) < 2 {
		return 0, short(op, 2)
	}
	binary.LittleEndian.PutUint16(buf, v)
	return 2, nil
}

func PutU32(op string, buf []byte, v uint32) (int, error) {
	if len(buf) < 4 {
		return 0, short(op, 4)
	}
	binary.LittleEndian.PutUint32(buf, v)
	return 4, nil
}

func PutU64(op string, buf []byte, v uint64) (int, error) {
	if len(buf) < 8 {
		return 0, short(op, 8)
	}
	binary.LittleEndian.PutUint64(buf, v)
	return 8, nil
}

// U16 decodes an exactly 2-byte payload.
func U16(op string, buf []byte) (uint16, error) {
	if err := ExpectLen(op, buf, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}
