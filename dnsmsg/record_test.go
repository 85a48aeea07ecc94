package dnsmsg

import (
	"net"
	"testing"

	"github.com/powerman/check"
)

func TestARecordRoundTrip(tt *testing.T) {
	t := check.T(tt)

	rec := &ARecord{
		Domain: "example.com",
		Addr:   net.IPv4(93, 184, 216, 34),
		TTL:    3600,
	}
	pb := NewPacketBuffer()
	written, err := rec.Encode(pb)
	t.Nil(err)
	// 13 bytes of name, type, class, ttl, rdlength, 4 address octets.
	t.EQ(written, 27)
	t.EQ(pb.Pos(), 27)

	t.Nil(pb.Seek(0))
	decoded, err := DecodeRecord(pb)
	t.Nil(err)
	t.DeepEqual(decoded, rec)
	t.EQ(pb.Pos(), 27)
}

func TestARecordRejectsNonIPv4(tt *testing.T) {
	t := check.T(tt)

	rec := &ARecord{Domain: "example.com", Addr: net.ParseIP("2001:db8::1"), TTL: 60}
	pb := NewPacketBuffer()
	_, err := rec.Encode(pb)
	t.NotNil(err)
}

func TestUnknownRecordSkip(tt *testing.T) {
	t := check.T(tt)

	wire := []byte{
		4, 't', 'e', 's', 't', 0,
		0x00, 0x63, // type 99
		0x00, 0x01, // class
		0x00, 0x00, 0x0e, 0x10, // ttl 3600
		0x00, 0x0a, // rdlength 10
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
	}
	pb, err := NewPacketBufferFrom(wire)
	t.Nil(err)

	rec, err := DecodeRecord(pb)
	t.Nil(err)
	urec, ok := rec.(*UnknownRecord)
	t.Must(t.True(ok))
	t.EQ(urec.Domain, "test")
	t.EQ(urec.QType, QueryType(99))
	t.EQ(urec.TTL, uint32(3600))
	t.EQ(urec.DataLen, uint16(10))
	// The payload is stepped over in full, nothing more.
	t.EQ(pb.Pos(), len(wire))
}

func TestUnknownRecordEncodesNothing(tt *testing.T) {
	t := check.T(tt)

	rec := &UnknownRecord{Domain: "test", QType: 99, TTL: 3600, DataLen: 10}
	pb := NewPacketBuffer()
	written, err := rec.Encode(pb)
	t.Nil(err)
	t.EQ(written, 0)
	t.EQ(pb.Pos(), 0)
}
