package notify

// Channel selects a notification destination.
type Channel string

// Channels. Budget messages go to ChannelToken, everything else to ChannelResults.
const (
	ChannelResults Channel = "results"
	ChannelToken   Channel = "token"
)

// Status is the outcome of one delivery attempt.
type Status string

// Delivery statuses.
const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Field is one name/value line of an Embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is an optional structured payload attached to a message.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Message is a notification with an optional embed.
type Message struct {
	Content string
	Embed   *Embed
}

// Text builds a plain message.
func Text(content string) Message {
	return Message{Content: content}
}

// Delivery reports what happened to a message.
type Delivery struct {
	Status Status
	Err    error
}

// Delivered reports whether the message reached the destination.
func (d Delivery) Delivered() bool { return d.Status == StatusSent }
