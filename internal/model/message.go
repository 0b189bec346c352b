package model

// MessageKind tags the result envelope returned by every fallible operation.
type MessageKind string

const (
	MessageSuccess        MessageKind = "Success"
	MessageError          MessageKind = "Error"
	MessageNotFound       MessageKind = "NotFound"
	MessageInvalidPayload MessageKind = "InvalidPayload"
)

// Message carries a human-readable text under one of the four kinds.
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"message"`
}

func NewSuccess(text string) Message {
	return Message{Kind: MessageSuccess, Text: text}
}

func NewError(text string) Message {
	return Message{Kind: MessageError, Text: text}
}

func NewNotFound(text string) Message {
	return Message{Kind: MessageNotFound, Text: text}
}

func NewInvalidPayload(text string) Message {
	return Message{Kind: MessageInvalidPayload, Text: text}
}
