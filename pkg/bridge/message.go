// Package bridge implements the privileged gateway that alone performs
// cross-origin requests, and the ports unprivileged code uses to reach it.
//
// Messages follow a small request/response protocol:
//
//	{"action":"getOrigin"}                       -> {"origin":"https://..."}
//	{"action":"fetch","url":..,"method":..,"body":..} -> {"ok":true,"data":{..}}
//	                                                  -> {"ok":false,"error":".."}
//
// Calls are independent. Concurrent calls may complete in any order.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	ActionGetOrigin = "getOrigin"
	ActionFetch     = "fetch"
)

// ErrClosed is returned by ports that were shut down.
var ErrClosed = errors.New("bridge closed")

// Message is a request from the unprivileged side.
type Message struct {
	Action string          `json:"action"`
	URL    string          `json:"url,omitempty"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Reply answers a Message. Origin is set for getOrigin, the remaining
// fields for fetch.
type Reply struct {
	Origin string          `json:"origin,omitempty"`
	OK     bool            `json:"ok"`
	Status int             `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Port carries one Message to the gateway and returns its Reply. The error
// is reserved for failures of the port itself; remote failures arrive as a
// Reply with OK false.
type Port interface {
	Send(ctx context.Context, msg Message) (Reply, error)
}

// FetchMessage builds a fetch message. A nil body is omitted.
func FetchMessage(method, url string, body []byte) Message {
	return Message{Action: ActionFetch, URL: url, Method: method, Body: body}
}
