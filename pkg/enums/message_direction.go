package enums

// MessageDirection marks whether a chat message was received or sent.
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// String implements fmt.Stringer.
func (m MessageDirection) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MessageDirection.
func (m MessageDirection) IsValid() bool {
	return m == MessageDirectionInbound || m == MessageDirectionOutbound
}
