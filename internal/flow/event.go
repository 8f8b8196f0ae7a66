package flow

// EventKind classifies the payload of an inbound update the way the
// transport layer tagged it.
type EventKind int

const (
	// KindText carries plain message text.
	KindText EventKind = iota
	// KindDocument carries a document attachment already persisted by the
	// transport layer; Attachment holds the stored file name.
	KindDocument
	// KindPhoto carries a photo attachment already persisted externally.
	KindPhoto
	// KindOther covers every other payload type.
	KindOther
)

// User identifies the sender of an event.
type User struct {
	ID   int64
	Name string
}

// Event is one inbound unit of work for the engine. The engine never sees
// attachment bytes, only the resolved descriptor.
type Event struct {
	Kind       EventKind
	Text       string
	Attachment string
}

// TextEvent builds a plain text event.
func TextEvent(text string) Event {
	return Event{Kind: KindText, Text: text}
}

// Reply is the directive handed back to the transport layer for rendering.
type Reply struct {
	Text string
	// Keyboard holds reply-keyboard rows of button labels; empty means
	// keep whatever keyboard is on screen.
	Keyboard [][]string
	// QRPayload, when non-empty, asks the transport to render the value as
	// a QR image alongside the text (used for the USDT receive address).
	QRPayload string
}
