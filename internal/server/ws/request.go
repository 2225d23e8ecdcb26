package ws

import (
	"fmt"

	"github.com/goccy/go-json"

	"powplant/internal/domain"
)

// wireRequest mirrors domain.PowRequest with every field optional, so that an absent
// or null field can be told apart from a zero value.
type wireRequest struct {
	Event     *wireEvent `json:"event"`
	TargetPow *uint32    `json:"target_pow"`
}

type wireEvent struct {
	CreatedAt *uint64      `json:"created_at"`
	Kind      *uint32      `json:"kind"`
	Tags      *[][]*string `json:"tags"`
	Content   *string      `json:"content"`
	PubKey    *string      `json:"pubkey"`
}

// decodeRequest parses a request message. Every field of the request and of its event
// must be present and non-null; unknown fields are ignored.
func decodeRequest(payload []byte) (domain.PowRequest, error) {
	var w wireRequest
	if err := json.Unmarshal(payload, &w); err != nil {
		return domain.PowRequest{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	switch {
	case w.Event == nil:
		return domain.PowRequest{}, missingField("event")
	case w.TargetPow == nil:
		return domain.PowRequest{}, missingField("target_pow")
	case w.Event.CreatedAt == nil:
		return domain.PowRequest{}, missingField("event.created_at")
	case w.Event.Kind == nil:
		return domain.PowRequest{}, missingField("event.kind")
	case w.Event.Tags == nil:
		return domain.PowRequest{}, missingField("event.tags")
	case w.Event.Content == nil:
		return domain.PowRequest{}, missingField("event.content")
	case w.Event.PubKey == nil:
		return domain.PowRequest{}, missingField("event.pubkey")
	}

	tags := make([][]string, 0, len(*w.Event.Tags))
	for i, tag := range *w.Event.Tags {
		if tag == nil {
			return domain.PowRequest{}, missingField(fmt.Sprintf("event.tags[%d]", i))
		}
		values := make([]string, len(tag))
		for j, v := range tag {
			if v == nil {
				return domain.PowRequest{}, missingField(fmt.Sprintf("event.tags[%d][%d]", i, j))
			}
			values[j] = *v
		}
		tags = append(tags, values)
	}

	return domain.PowRequest{
		Event: domain.Event{
			CreatedAt: *w.Event.CreatedAt,
			Kind:      *w.Event.Kind,
			Tags:      tags,
			Content:   *w.Event.Content,
			PubKey:    *w.Event.PubKey,
		},
		TargetPow: *w.TargetPow,
	}, nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s is missing or null", ErrMalformedRequest, name)
}
