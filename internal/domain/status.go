package domain

// IconState visual state of the status indicator shown by the presentation layer.
type IconState string

const (
	IconLoading   IconState = "loading"
	IconConfirmed IconState = "confirmed"
	IconError     IconState = "error"
)

// Status is the single status object exposed to the presentation layer.
// It is rebuilt on every lifecycle event of the in-flight operation.
type Status struct {
	Header         string    `json:"header"`
	Message        string    `json:"message"`
	IsError        bool      `json:"isError"`
	TxHash         string    `json:"txHash,omitempty"`
	Icon           IconState `json:"icon"`
	InputsDisabled bool      `json:"inputsDisabled"`
}
