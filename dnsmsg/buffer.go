package dnsmsg

import (
	"errors"
	"strings"
)

const (
	// MaxPacketSize is the size of a plain DNS datagram over UDP. Without
	// EDNS0 the protocol caps messages at 512 bytes (RFC 1035 §4.2.1).
	MaxPacketSize = 512

	maxJumps       = 5
	maxLabelLength = 63
)

var (
	ErrOutOfBounds  = errors.New("End of buffer")
	ErrTooManyJumps = errors.New("Too many compression pointer jumps")
	ErrLabelTooLong = errors.New("Label exceeds 63 bytes")
	ErrOversized    = errors.New("Packet larger than the DNS datagram limit")
)

// PacketBuffer is a cursor over a single DNS datagram. All field and name
// access goes through its bounds-checked accessors, so no caller ever
// indexes the raw packet directly. A buffer serves exactly one datagram
// and is discarded afterwards.
type PacketBuffer struct {
	buf [MaxPacketSize]byte
	pos int
}

func NewPacketBuffer() *PacketBuffer {
	return &PacketBuffer{}
}

// NewPacketBufferFrom copies a received datagram into a fresh buffer,
// ready for decoding from position 0.
func NewPacketBufferFrom(packet []byte) (*PacketBuffer, error) {
	if len(packet) > MaxPacketSize {
		return nil, ErrOversized
	}
	pb := &PacketBuffer{}
	copy(pb.buf[:], packet)
	return pb, nil
}

func (pb *PacketBuffer) Pos() int {
	return pb.pos
}

// Bytes returns the wire data written so far.
func (pb *PacketBuffer) Bytes() []byte {
	return pb.buf[:pb.pos]
}

func (pb *PacketBuffer) Step(steps int) error {
	if steps < 0 || pb.pos+steps >= MaxPacketSize {
		return ErrOutOfBounds
	}
	pb.pos += steps
	return nil
}

func (pb *PacketBuffer) Seek(pos int) error {
	if pos < 0 || pos >= MaxPacketSize {
		return ErrOutOfBounds
	}
	pb.pos = pos
	return nil
}

func (pb *PacketBuffer) ReadUint8() (uint8, error) {
	if pb.pos >= MaxPacketSize {
		return 0, ErrOutOfBounds
	}
	res := pb.buf[pb.pos]
	pb.pos++
	return res, nil
}

func (pb *PacketBuffer) ReadUint16() (uint16, error) {
	hi, err := pb.ReadUint8()
	if err != nil {
		return 0, err
	}
	lo, err := pb.ReadUint8()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func (pb *PacketBuffer) ReadUint32() (uint32, error) {
	hi, err := pb.ReadUint16()
	if err != nil {
		return 0, err
	}
	lo, err := pb.ReadUint16()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// PeekUint8 returns the byte at an absolute position without moving the
// cursor.
func (pb *PacketBuffer) PeekUint8(at int) (uint8, error) {
	if at < 0 || at >= MaxPacketSize {
		return 0, ErrOutOfBounds
	}
	return pb.buf[at], nil
}

// PeekRange returns a view of the underlying packet without copying. The
// slice stays valid only as long as the buffer does.
func (pb *PacketBuffer) PeekRange(at int, length int) ([]byte, error) {
	if at < 0 || length < 0 || at+length > MaxPacketSize {
		return nil, ErrOutOfBounds
	}
	return pb.buf[at : at+length], nil
}

func (pb *PacketBuffer) WriteUint8(val uint8) error {
	if pb.pos >= MaxPacketSize {
		return ErrOutOfBounds
	}
	pb.buf[pb.pos] = val
	pb.pos++
	return nil
}

func (pb *PacketBuffer) WriteUint16(val uint16) error {
	if err := pb.WriteUint8(uint8(val >> 8)); err != nil {
		return err
	}
	return pb.WriteUint8(uint8(val & 0xff))
}

func (pb *PacketBuffer) WriteUint32(val uint32) error {
	if err := pb.WriteUint16(uint16(val >> 16)); err != nil {
		return err
	}
	return pb.WriteUint16(uint16(val & 0xffff))
}

// SetUint8 patches an already written byte, leaving the cursor alone.
func (pb *PacketBuffer) SetUint8(at int, val uint8) error {
	if at < 0 || at >= MaxPacketSize {
		return ErrOutOfBounds
	}
	pb.buf[at] = val
	return nil
}

// SetUint16 backpatches a length or count field at an absolute position.
func (pb *PacketBuffer) SetUint16(at int, val uint16) error {
	if err := pb.SetUint8(at, uint8(val>>8)); err != nil {
		return err
	}
	return pb.SetUint8(at+1, uint8(val&0xff))
}

// ReadQName decodes a domain name starting at the current position,
// following compression pointers, and leaves the cursor just past the
// name's wire representation.
//
// The position is tracked locally while labels are collected, because a
// compression pointer redirects reading to an earlier part of the packet:
// the shared cursor must end up after the name as it appeared in the
// stream, not wherever the pointer chain led.
func (pb *PacketBuffer) ReadQName() (string, error) {
	pos := pb.pos
	jumped := false
	jumpsPerformed := 0

	var name strings.Builder
	delim := ""
	for {
		// Pointers in a crafted packet can form a cycle. Give up after
		// a fixed number of jumps instead of looping forever.
		if jumpsPerformed > maxJumps {
			return "", ErrTooManyJumps
		}
		length, err := pb.PeekUint8(pos)
		if err != nil {
			return "", err
		}
		if length&0xC0 == 0xC0 {
			// The two high bits mark a compression pointer. Only the
			// first jump moves the shared cursor, to just past the
			// 2-byte pointer, so the outer parse resumes correctly.
			if !jumped {
				if err := pb.Seek(pos + 2); err != nil {
					return "", err
				}
			}
			b2, err := pb.PeekUint8(pos + 1)
			if err != nil {
				return "", err
			}
			offset := (uint16(length)^0xC0)<<8 | uint16(b2)
			pos = int(offset)

			jumped = true
			jumpsPerformed++
			continue
		}
		pos++
		if length == 0 {
			break
		}
		name.WriteString(delim)
		label, err := pb.PeekRange(pos, int(length))
		if err != nil {
			return "", err
		}
		name.WriteString(strings.ToLower(string(label)))
		delim = "."
		pos += int(length)
	}
	if !jumped {
		if err := pb.Seek(pos); err != nil {
			return "", err
		}
	}
	return name.String(), nil
}

// WriteQName encodes a dotted domain name as length-prefixed labels with a
// zero terminator. Compression is never emitted on the write path.
func (pb *PacketBuffer) WriteQName(qname string) error {
	for _, label := range strings.Split(qname, ".") {
		if len(label) > maxLabelLength {
			return ErrLabelTooLong
		}
		if err := pb.WriteUint8(uint8(len(label))); err != nil {
			return err
		}
		for i := 0; i < len(label); i++ {
			if err := pb.WriteUint8(label[i]); err != nil {
				return err
			}
		}
	}
	return pb.WriteUint8(0)
}
