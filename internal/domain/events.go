package domain

// Event topics and the message header carrying the acting user id.
// Consumers run outside the original caller's security context, so the
// buyer's identity travels with the message instead of ambient state.
//
// Payloads are deliberately bare: order.create carries the JSON list of
// purchased item ids, pay.success carries the order id.
const (
	TopicOrderCreated = "order.create"
	TopicPaySuccess   = "pay.success"

	UserHeader = "user-info"
)
