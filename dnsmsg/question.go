package dnsmsg

import "fmt"

// QueryType is a DNS record type code. The named constants are the types
// this codec understands; any other value decodes and re-encodes verbatim,
// so unassigned types survive a relay round-trip untouched.
type QueryType uint16

const (
	TypeA     QueryType = 1
	TypeNS    QueryType = 2
	TypeCNAME QueryType = 5
	TypeMX    QueryType = 15
	TypeAAAA  QueryType = 28
)

// classIN is the only record class this codec handles.
const classIN = 1

func (qtype QueryType) String() string {
	switch qtype {
	case TypeA:
		return "A"
	case TypeNS:
		return "NS"
	case TypeCNAME:
		return "CNAME"
	case TypeMX:
		return "MX"
	case TypeAAAA:
		return "AAAA"
	}
	return fmt.Sprintf("TYPE%d", uint16(qtype))
}

// Question is one entry of the question section: a lowercase dotted name
// and the record type being asked for. Only class IN is supported, so the
// class is not modeled; it is discarded on decode and written as the
// literal 1 on encode.
type Question struct {
	Name  string
	QType QueryType
}

func (question *Question) Decode(pb *PacketBuffer) error {
	name, err := pb.ReadQName()
	if err != nil {
		return err
	}
	question.Name = name

	qtype, err := pb.ReadUint16()
	if err != nil {
		return err
	}
	question.QType = QueryType(qtype)

	if _, err := pb.ReadUint16(); err != nil { // class
		return err
	}
	return nil
}

func (question *Question) Encode(pb *PacketBuffer) error {
	if err := pb.WriteQName(question.Name); err != nil {
		return err
	}
	if err := pb.WriteUint16(uint16(question.QType)); err != nil {
		return err
	}
	return pb.WriteUint16(classIN)
}
