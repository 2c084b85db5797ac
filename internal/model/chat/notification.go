package chat

// Level grades a notification shown to the widget user.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// User-facing texts shown by the widget as a transient toast.
const (
	NoticeSendFailed        = "Failed to send message. Please try again."
	NoticeSpeechFailed      = "Failed to generate speech response"
	NoticeRecognitionFailed = "Failed to recognize speech. Please try again."
	NoticeRecordingFailed   = "Failed to start speech recognition. Please try again."
)

// Notification is a transient message for the user. It is never stored.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// ErrorNotice builds an error level notification.
func ErrorNotice(message string) Notification {
	return Notification{Level: LevelError, Message: message}
}
