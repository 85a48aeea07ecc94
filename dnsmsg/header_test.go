package dnsmsg

import (
	"testing"

	"github.com/powerman/check"
)

func TestHeaderRoundTrip(tt *testing.T) {
	t := check.T(tt)

	header := Header{
		ID:                   0xfeed,
		RecursionDesired:     true,
		TruncatedMessage:     true,
		AuthoritativeAnswer:  true,
		Opcode:               0x0f,
		Response:             true,
		Rcode:                RcodeRefused,
		CheckingDisabled:     true,
		AuthedData:           true,
		Z:                    true,
		RecursionAvailable:   true,
		Questions:            1,
		Answers:              2,
		AuthoritativeEntries: 3,
		ResourceEntries:      4,
	}
	pb := NewPacketBuffer()
	t.Nil(header.Encode(pb))
	t.EQ(pb.Pos(), 12)

	t.Nil(pb.Seek(0))
	var decoded Header
	t.Nil(decoded.Decode(pb))
	t.EQ(decoded, header)
	t.EQ(pb.Pos(), 12)
}

func TestHeaderWireLayout(tt *testing.T) {
	t := check.T(tt)

	header := Header{
		ID:                   0xabcd,
		RecursionDesired:     true,
		AuthoritativeAnswer:  true,
		Opcode:               2,
		Response:             true,
		Rcode:                RcodeNXDomain,
		CheckingDisabled:     true,
		Z:                    true,
		RecursionAvailable:   true,
		Questions:            1,
		Answers:              2,
		AuthoritativeEntries: 3,
		ResourceEntries:      4,
	}
	pb := NewPacketBuffer()
	t.Nil(header.Encode(pb))
	t.BytesEqual(pb.Bytes(), []byte{
		0xab, 0xcd,
		0x95, 0xd3,
		0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04,
	})
}

func TestHeaderRcodeLossy(tt *testing.T) {
	t := check.T(tt)

	// An unassigned 4-bit rcode does not survive decoding: it collapses
	// to NOERROR instead of failing.
	wire := []byte{
		0x00, 0x01,
		0x00, 0x09,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	pb, err := NewPacketBufferFrom(wire)
	t.Nil(err)

	var header Header
	t.Nil(header.Decode(pb))
	t.EQ(header.Rcode, RcodeNoError)
}

func TestResponseCodeStrings(tt *testing.T) {
	t := check.T(tt)

	t.EQ(RcodeNoError.String(), "NOERROR")
	t.EQ(RcodeFormErr.String(), "FORMERR")
	t.EQ(RcodeServFail.String(), "SERVFAIL")
	t.EQ(RcodeNXDomain.String(), "NXDOMAIN")
	t.EQ(RcodeNotImp.String(), "NOTIMP")
	t.EQ(RcodeRefused.String(), "REFUSED")
	t.EQ(ResponseCode(11).String(), "RCODE11")
}
