package domain

// Event is the record whose digest is tuned. Field order is the canonical
// serialization order and must not change.
type Event struct {
	CreatedAt uint64     `json:"created_at"`
	Kind      uint32     `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	PubKey    string     `json:"pubkey"`
}

// PowRequest asks for Event to be mined up to TargetPow leading zero bits.
// A TargetPow of zero means the server default.
type PowRequest struct {
	Event     Event  `json:"event"`
	TargetPow uint32 `json:"target_pow"`
}

// PowResponse carries the mined Event and the difficulty its digest achieved.
type PowResponse struct {
	Event Event  `json:"event"`
	Pow   uint32 `json:"pow"`
}
