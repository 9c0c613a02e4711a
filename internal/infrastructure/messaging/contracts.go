package messaging

const (
	DeadLetterExchange = "dlx"
	DeadLetterQueue    = "dead_letter_queue"

	// GroupHeader carries the partition key of a queued record.
	GroupHeader = "x-group-id"
)

// Routing keys
const (
	EventMessageSent = "message.sent"
)
