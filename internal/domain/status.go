package domain

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusComplete, StatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether a record in this status has finished its current attempt.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}
