package storage

// ConsentState records whether a user agreed to have their messages archived.
type ConsentState string

const (
	ConsentPending  ConsentState = "pending"
	ConsentOptedIn  ConsentState = "opted_in"
	ConsentOptedOut ConsentState = "opted_out"
)

// User is a chat platform user known to the archiver.
// Users are registered on first observation and never deleted.
type User struct {
	UserID    int64        `gorm:"primaryKey;autoIncrement:false"`
	Consent   ConsentState `gorm:"default:pending"`
	Anonymous bool
}

// Server is a community the bot has observed. Tags is an optional
// comma-delimited list populated by an administrator.
type Server struct {
	ServerID int64 `gorm:"primaryKey;autoIncrement:false"`
	Name     string
	Link     *string
	Tags     *string
}

// Message is one archived chat message. Message ids may collide across
// servers but not within one, hence the composite key. A nil AuthorName
// means the author is anonymized when the message is rendered.
type Message struct {
	MessageID   int64 `gorm:"primaryKey;autoIncrement:false"`
	ServerID    int64 `gorm:"primaryKey;autoIncrement:false"`
	AuthorName  *string
	Content     string
	Timestamp   int64
	AuthorIsBot bool
}

// Conversation is a saved run of messages. MessageIDs is a comma-delimited
// list of message ids, oldest first; a trailing comma is tolerated on read.
type Conversation struct {
	ConversationID uint `gorm:"primaryKey"`
	MessageIDs     string
	ServerID       int64
	Tags           *string
}
