// Package broadcast frames telemetry for viewers and fans it out from one
// producer to many independently lagging subscribers.
package broadcast

type Kind byte

// Wire tags. Each frame is the tag byte followed by the raw payload.
const (
	KindVideo    Kind = 0x01
	KindAudio    Kind = 0x02
	KindState    Kind = 0x03
	KindParty    Kind = 0x04
	KindLocation Kind = 0x05
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindState:
		return "state"
	case KindParty:
		return "party"
	case KindLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Message is an opaque payload of a given kind. Payload is never inspected
// and must not be mutated after Publish.
type Message struct {
	Kind    Kind
	Payload []byte
}

// Encode returns the wire frame: tag byte then payload. An empty payload
// yields a single byte.
func (m Message) Encode() []byte {
	out := make([]byte, 1+len(m.Payload))
	out[0] = byte(m.Kind)
	copy(out[1:], m.Payload)
	return out
}

// Decode splits a wire frame. Empty frames report ok=false.
func Decode(frame []byte) (Message, bool) {
	if len(frame) == 0 {
		return Message{}, false
	}
	return Message{Kind: Kind(frame[0]), Payload: frame[1:]}, true
}
