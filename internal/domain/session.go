package domain

// Session keys written by the login flow.
const (
	SessionKeyReturnTo = "return_to"
	SessionKeyFlash    = "flash"
)

// FlashKind classifies a one-shot message shown on the next render
type FlashKind string

const (
	FlashNotice FlashKind = "notice"
	FlashError  FlashKind = "error"
)

// Flash is a one-shot user-visible message
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}
