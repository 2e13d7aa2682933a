package process

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/wallet"
)

// Message is an action addressed to a compute process.
type Message struct {
	Target string       `cbor:"target" json:"target"`
	Anchor string       `cbor:"anchor" json:"anchor"`
	Owner  string       `cbor:"owner"  json:"owner"`
	Tags   []ledger.Tag `cbor:"tags"   json:"tags"`
	Data   string       `cbor:"data"   json:"data"`
}

// SignedMessage is a Message with its detached signature, ready for the
// message unit.
type SignedMessage struct {
	Message
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

var encMode = mustCanonical()

func mustCanonical() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	return em
}

// Digest is the SHA-256 of the canonical CBOR encoding of msg.
func Digest(msg *Message) ([]byte, error) {
	encoded, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	sum := sha256.Sum256(encoded)

	return sum[:], nil
}

// Sign binds msg to signer. The message id is derived from the signature.
func Sign(ctx context.Context, signer wallet.Signer, msg Message) (*SignedMessage, error) {
	msg.Owner = signer.Owner()

	digest, err := Digest(&msg)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}

	id := sha256.Sum256(sig)

	return &SignedMessage{
		Message:   msg,
		ID:        base64.RawURLEncoding.EncodeToString(id[:]),
		Signature: base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// Output is one message emitted by the process while handling an action.
type Output struct {
	Data string       `json:"Data"`
	Tags []ledger.Tag `json:"Tags,omitempty"`
}

// Decode unmarshals the JSON carried in Data.
func (o Output) Decode(v any) error {
	return json.Unmarshal([]byte(o.Data), v)
}

// Result is what the compute unit reports for a message.
type Result struct {
	Outputs []Output `json:"Outputs"`
	Error   string   `json:"Error,omitempty"`
}

// UnmarshalJSON accepts compute units that name the outputs "Messages".
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		Outputs  []Output `json:"Outputs"`
		Messages []Output `json:"Messages"`
		Error    string   `json:"Error"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.Outputs = raw.Outputs
	if len(r.Outputs) == 0 {
		r.Outputs = raw.Messages
	}

	r.Error = raw.Error

	return nil
}

// TagValue returns the value of the first tag called name.
func TagValue(tags []ledger.Tag, name string) string {
	for _, tag := range tags {
		if tag.Name == name {
			return tag.Value
		}
	}

	return ""
}
