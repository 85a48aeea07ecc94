package dnsmsg

// Message is a full DNS message: header plus the four sections in wire
// order. A Message lives for a single decode or encode pass over one
// datagram.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Resources   []ResourceRecord
}

// DecodeMessage parses a complete message from the buffer. The header
// counts alone drive how many entries each section read attempts; a count
// that overstates the payload runs into the buffer bounds and fails there.
func DecodeMessage(pb *PacketBuffer) (*Message, error) {
	msg := &Message{}
	if err := msg.Header.Decode(pb); err != nil {
		return nil, err
	}
	for i := uint16(0); i < msg.Header.Questions; i++ {
		var question Question
		if err := question.Decode(pb); err != nil {
			return nil, err
		}
		msg.Questions = append(msg.Questions, question)
	}
	for i := uint16(0); i < msg.Header.Answers; i++ {
		rec, err := DecodeRecord(pb)
		if err != nil {
			return nil, err
		}
		msg.Answers = append(msg.Answers, rec)
	}
	for i := uint16(0); i < msg.Header.AuthoritativeEntries; i++ {
		rec, err := DecodeRecord(pb)
		if err != nil {
			return nil, err
		}
		msg.Authorities = append(msg.Authorities, rec)
	}
	for i := uint16(0); i < msg.Header.ResourceEntries; i++ {
		rec, err := DecodeRecord(pb)
		if err != nil {
			return nil, err
		}
		msg.Resources = append(msg.Resources, rec)
	}
	return msg, nil
}

// Encode serializes the message at the buffer position. The header counts
// are recomputed from the actual section lengths first, so stale counts on
// a mutated message never reach the wire.
func (msg *Message) Encode(pb *PacketBuffer) error {
	msg.Header.Questions = uint16(len(msg.Questions))
	msg.Header.Answers = uint16(len(msg.Answers))
	msg.Header.AuthoritativeEntries = uint16(len(msg.Authorities))
	msg.Header.ResourceEntries = uint16(len(msg.Resources))

	if err := msg.Header.Encode(pb); err != nil {
		return err
	}
	for i := range msg.Questions {
		if err := msg.Questions[i].Encode(pb); err != nil {
			return err
		}
	}
	for _, rec := range msg.Answers {
		if _, err := rec.Encode(pb); err != nil {
			return err
		}
	}
	for _, rec := range msg.Authorities {
		if _, err := rec.Encode(pb); err != nil {
			return err
		}
	}
	for _, rec := range msg.Resources {
		if _, err := rec.Encode(pb); err != nil {
			return err
		}
	}
	return nil
}
