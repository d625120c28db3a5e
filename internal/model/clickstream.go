package model

import (
	"encoding/json"
	"fmt"
)

// Action is one step of a clickstream: either a click on a CSS selector or
// a browser-history "go back".
//
// Design decision: Action is a closed sum type expressed through an
// unexported marker method rather than a string sentinel. The replay engine
// switches on the concrete type, and the compiler keeps the set closed.
type Action interface {
	// isAction marks the closed set of action types.
	isAction()
}

// SelectorAction clicks the element addressed by a CSS selector.
type SelectorAction struct {
	// Selector is the CSS selector of the element to click.
	Selector string `json:"selector"`

	// ElementType is the tag name of the element (button, a, input, ...).
	// Replay failures are counted per element type.
	ElementType string `json:"element_type"`
}

func (SelectorAction) isAction() {}

// GoBackAction navigates one step back in browser history.
type GoBackAction struct{}

func (GoBackAction) isAction() {}

// Clickstream is an ordered sequence of actions.
type Clickstream []Action

// actionEnvelope is the JSON wire form of an Action.
// A "kind" tag discriminates the variants so that clickstreams survive a
// round trip through the results store and can be replayed later.
type actionEnvelope struct {
	Kind        string `json:"kind"`
	Selector    string `json:"selector,omitempty"`
	ElementType string `json:"element_type,omitempty"`
}

// Action kind tags.
const (
	actionKindSelector = "selector"
	actionKindGoBack   = "go_back"
)

// MarshalJSON encodes the clickstream as a list of tagged envelopes.
func (c Clickstream) MarshalJSON() ([]byte, error) {
	envelopes := make([]actionEnvelope, 0, len(c))
	for _, action := range c {
		switch a := action.(type) {
		case SelectorAction:
			envelopes = append(envelopes, actionEnvelope{
				Kind:        actionKindSelector,
				Selector:    a.Selector,
				ElementType: a.ElementType,
			})
		case GoBackAction:
			envelopes = append(envelopes, actionEnvelope{Kind: actionKindGoBack})
		default:
			return nil, fmt.Errorf("marshal clickstream: unknown action type %T", action)
		}
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON decodes a list of tagged envelopes back into actions.
func (c *Clickstream) UnmarshalJSON(data []byte) error {
	var envelopes []actionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("unmarshal clickstream: %w", err)
	}

	actions := make(Clickstream, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Kind {
		case actionKindSelector:
			actions = append(actions, SelectorAction{
				Selector:    env.Selector,
				ElementType: env.ElementType,
			})
		case actionKindGoBack:
			actions = append(actions, GoBackAction{})
		default:
			return fmt.Errorf("unmarshal clickstream: unknown action kind %q", env.Kind)
		}
	}
	*c = actions
	return nil
}
