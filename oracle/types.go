package oracle

// DecryptRequest asks the oracle to decrypt a set of ciphertext handles.
// Handles are hex encoded on the wire.
type DecryptRequest struct {
	Handles []string `json:"handles"`
}

// DecryptResponse acknowledges a dispatched request with the oracle-assigned
// request id. The result arrives later through the callback.
type DecryptResponse struct {
	RequestID string `json:"request_id"`
}

// CallbackRequest is the oracle's asynchronous answer, posted to the engine's
// callback endpoint. The proof is the oracle's signature binding the
// cleartext to the request id and protocol instance; verifying it is what
// authenticates the callback origin.
type CallbackRequest struct {
	RequestID string `json:"request_id"`
	Cleartext string `json:"cleartext"`
	Proof     string `json:"proof"`
}

// CallbackResponse reports whether the engine accepted the result.
type CallbackResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}
