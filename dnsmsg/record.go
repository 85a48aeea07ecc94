package dnsmsg

import (
	"fmt"
	"net"
)

// ResourceRecord is one entry of the answer, authority or additional
// section. Decoding yields either an ARecord or, for every type this codec
// does not interpret, an UnknownRecord that remembers how much payload was
// skipped.
type ResourceRecord interface {
	// Encode appends the record's wire form at the buffer position and
	// returns the number of bytes it occupies on the wire.
	Encode(pb *PacketBuffer) (int, error)
}

type ARecord struct {
	Domain string
	Addr   net.IP
	TTL    uint32
}

type UnknownRecord struct {
	Domain  string
	QType   QueryType
	TTL     uint32
	DataLen uint16
}

func DecodeRecord(pb *PacketBuffer) (ResourceRecord, error) {
	domain, err := pb.ReadQName()
	if err != nil {
		return nil, err
	}
	qtypeNum, err := pb.ReadUint16()
	if err != nil {
		return nil, err
	}
	if _, err := pb.ReadUint16(); err != nil { // class
		return nil, err
	}
	ttl, err := pb.ReadUint32()
	if err != nil {
		return nil, err
	}
	dataLen, err := pb.ReadUint16()
	if err != nil {
		return nil, err
	}

	switch QueryType(qtypeNum) {
	case TypeA:
		// The declared length is trusted rather than checked against the
		// 4 bytes an A record carries; the read itself stays bounds-checked.
		rawAddr, err := pb.ReadUint32()
		if err != nil {
			return nil, err
		}
		addr := net.IPv4(
			uint8(rawAddr>>24),
			uint8(rawAddr>>16),
			uint8(rawAddr>>8),
			uint8(rawAddr),
		)
		return &ARecord{Domain: domain, Addr: addr, TTL: ttl}, nil
	default:
		if err := pb.Step(int(dataLen)); err != nil {
			return nil, err
		}
		return &UnknownRecord{
			Domain:  domain,
			QType:   QueryType(qtypeNum),
			TTL:     ttl,
			DataLen: dataLen,
		}, nil
	}
}

func (rec *ARecord) Encode(pb *PacketBuffer) (int, error) {
	startPos := pb.Pos()
	if err := pb.WriteQName(rec.Domain); err != nil {
		return 0, err
	}
	if err := pb.WriteUint16(uint16(TypeA)); err != nil {
		return 0, err
	}
	if err := pb.WriteUint16(classIN); err != nil {
		return 0, err
	}
	if err := pb.WriteUint32(rec.TTL); err != nil {
		return 0, err
	}
	if err := pb.WriteUint16(4); err != nil {
		return 0, err
	}
	ip4 := rec.Addr.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("Not an IPv4 address: [%v]", rec.Addr)
	}
	for _, octet := range ip4 {
		if err := pb.WriteUint8(octet); err != nil {
			return 0, err
		}
	}
	return pb.Pos() - startPos, nil
}

// Encode for an unrecognized record writes nothing: the payload was never
// retained, so the record cannot be reproduced on the wire.
func (rec *UnknownRecord) Encode(pb *PacketBuffer) (int, error) {
	return 0, nil
}
