package dnsmsg

import "fmt"

type ResponseCode uint8

const (
	RcodeNoError  ResponseCode = 0
	RcodeFormErr  ResponseCode = 1
	RcodeServFail ResponseCode = 2
	RcodeNXDomain ResponseCode = 3
	RcodeNotImp   ResponseCode = 4
	RcodeRefused  ResponseCode = 5
)

// rcodeFromNum maps a wire value to a response code. Values outside the
// known set collapse to NOERROR, matching how lenient resolvers treat
// unassigned codes.
func rcodeFromNum(num uint8) ResponseCode {
	switch num {
	case 1:
		return RcodeFormErr
	case 2:
		return RcodeServFail
	case 3:
		return RcodeNXDomain
	case 4:
		return RcodeNotImp
	case 5:
		return RcodeRefused
	default:
		return RcodeNoError
	}
}

func (rcode ResponseCode) String() string {
	switch rcode {
	case RcodeNoError:
		return "NOERROR"
	case RcodeFormErr:
		return "FORMERR"
	case RcodeServFail:
		return "SERVFAIL"
	case RcodeNXDomain:
		return "NXDOMAIN"
	case RcodeNotImp:
		return "NOTIMP"
	case RcodeRefused:
		return "REFUSED"
	}
	return fmt.Sprintf("RCODE%d", uint8(rcode))
}

// Header is the fixed 12-byte DNS message header. The four section counts
// are rewritten from the actual section lengths when a Message is encoded,
// so they are only trustworthy right after a decode.
type Header struct {
	ID uint16

	RecursionDesired    bool
	TruncatedMessage    bool
	AuthoritativeAnswer bool
	Opcode              uint8
	Response            bool

	Rcode              ResponseCode
	CheckingDisabled   bool
	AuthedData         bool
	Z                  bool
	RecursionAvailable bool

	Questions            uint16
	Answers              uint16
	AuthoritativeEntries uint16
	ResourceEntries      uint16
}

func (header *Header) Decode(pb *PacketBuffer) error {
	id, err := pb.ReadUint16()
	if err != nil {
		return err
	}
	header.ID = id

	flags, err := pb.ReadUint16()
	if err != nil {
		return err
	}
	a := uint8(flags >> 8)
	b := uint8(flags & 0xff)
	header.RecursionDesired = a&(1<<0) > 0
	header.TruncatedMessage = a&(1<<1) > 0
	header.AuthoritativeAnswer = a&(1<<2) > 0
	header.Opcode = (a >> 3) & 0x0f
	header.Response = a&(1<<7) > 0

	header.Rcode = rcodeFromNum(b & 0x0f)
	header.CheckingDisabled = b&(1<<4) > 0
	header.AuthedData = b&(1<<5) > 0
	header.Z = b&(1<<6) > 0
	header.RecursionAvailable = b&(1<<7) > 0

	if header.Questions, err = pb.ReadUint16(); err != nil {
		return err
	}
	if header.Answers, err = pb.ReadUint16(); err != nil {
		return err
	}
	if header.AuthoritativeEntries, err = pb.ReadUint16(); err != nil {
		return err
	}
	if header.ResourceEntries, err = pb.ReadUint16(); err != nil {
		return err
	}
	return nil
}

func (header *Header) Encode(pb *PacketBuffer) error {
	if err := pb.WriteUint16(header.ID); err != nil {
		return err
	}
	if err := pb.WriteUint8(boolBit(header.RecursionDesired) |
		boolBit(header.TruncatedMessage)<<1 |
		boolBit(header.AuthoritativeAnswer)<<2 |
		header.Opcode<<3 |
		boolBit(header.Response)<<7); err != nil {
		return err
	}
	if err := pb.WriteUint8(uint8(header.Rcode) |
		boolBit(header.CheckingDisabled)<<4 |
		boolBit(header.AuthedData)<<5 |
		boolBit(header.Z)<<6 |
		boolBit(header.RecursionAvailable)<<7); err != nil {
		return err
	}
	if err := pb.WriteUint16(header.Questions); err != nil {
		return err
	}
	if err := pb.WriteUint16(header.Answers); err != nil {
		return err
	}
	if err := pb.WriteUint16(header.AuthoritativeEntries); err != nil {
		return err
	}
	return pb.WriteUint16(header.ResourceEntries)
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
