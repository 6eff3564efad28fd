package transfer

// Toast titles.
const (
	TitleInvalidRecipient = "Invalid recipient address"
	TitleProviderMissing  = "Wallet provider not found"
	TitleInvalidAmount    = "Invalid amount"
	TitleSuccess          = "Transaction successful!"
	TitleFailed           = "Transaction failed!"
	TitleLookalike        = "Recipient looks like a previous one"
)

// Level selects how a notification is styled.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notification is a transient, dismissible message.
type Notification struct {
	Title string
	Body  string
	Level Level
}

// Notifier receives notifications as they are raised.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
