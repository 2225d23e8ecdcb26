package usecases

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"powplant/internal/domain"
)

const (
	// NonceTag marks the tag entry holding the nonce.
	NonceTag = "nonce"
	// NonceWidth is the fixed number of hexadecimal characters of the nonce value.
	NonceWidth = 16
)

var ErrFieldNotFound = errors.New("nonce placeholder not found in serialized event")

// Canonical is an event with an appended nonce tag, serialized once, together with the
// location of the nonce value inside the serialized text.
type Canonical struct {
	Event      domain.Event
	TagIndex   int
	Serialized []byte
	Offset     int
	Width      int
}

// Serialize produces the canonical text form of ev: fields in declaration order,
// compact, and without HTML escaping.
func Serialize(ev *domain.Event) ([]byte, error) {
	return json.MarshalNoEscape(ev)
}

// Canonicalize appends a zero nonce tag to a copy of ev, serializes it and locates the
// placeholder. The caller's tag slice is never modified.
func Canonicalize(ev domain.Event) (*Canonical, error) {
	placeholder := strings.Repeat("0", NonceWidth)

	tags := make([][]string, len(ev.Tags), len(ev.Tags)+1)
	copy(tags, ev.Tags)
	ev.Tags = append(tags, []string{NonceTag, placeholder})

	serialized, err := Serialize(&ev)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event: %w", err)
	}

	// The appended tag is the last entry of the tags array, and content/pubkey cannot
	// hold unescaped quotes, so the last match is ours.
	pattern := fmt.Sprintf(`[%q,%q]`, NonceTag, placeholder)
	pos := bytes.LastIndex(serialized, []byte(pattern))
	if pos < 0 {
		return nil, ErrFieldNotFound
	}

	return &Canonical{
		Event:      ev,
		TagIndex:   len(ev.Tags) - 1,
		Serialized: serialized,
		Offset:     pos + len(pattern) - NonceWidth - len(`"]`),
		Width:      NonceWidth,
	}, nil
}

func (c *Canonical) Prefix() []byte {
	return c.Serialized[:c.Offset]
}

func (c *Canonical) Suffix() []byte {
	return c.Serialized[c.Offset+c.Width:]
}

// Apply writes nonce into the nonce tag of the structured event.
func (c *Canonical) Apply(nonce string) {
	c.Event.Tags[c.TagIndex][1] = nonce
}
