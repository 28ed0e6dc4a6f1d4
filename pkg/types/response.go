package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// FunctionError is the flat body returned by provider-facing endpoints
// (preference creation and payment notifications).
type FunctionError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
