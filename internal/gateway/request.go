package gateway

import (
	"time"

	"github.com/google/uuid"
)

// Request is an immutable tutoring question. Build it with NewRequest.
type Request struct {
	id        string
	query     string
	userID    string
	sessionID string
	issuedAt  time.Time
	metadata  map[string]interface{}
}

type Option func(*Request)

func WithUserID(id string) Option {
	return func(r *Request) { r.userID = id }
}

func WithSessionID(id string) Option {
	return func(r *Request) { r.sessionID = id }
}

func WithIssuedAt(t time.Time) Option {
	return func(r *Request) { r.issuedAt = t }
}

// WithMetadata adds one metadata entry.
func WithMetadata(key string, value interface{}) Option {
	return func(r *Request) { r.metadata[key] = value }
}

func NewRequest(query string, opts ...Option) Request {
	r := Request{
		id:       uuid.NewString(),
		query:    query,
		issuedAt: time.Now(),
		metadata: map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Request) ID() string          { return r.id }
func (r Request) Query() string       { return r.query }
func (r Request) UserID() string      { return r.userID }
func (r Request) SessionID() string   { return r.sessionID }
func (r Request) IssuedAt() time.Time { return r.issuedAt }

// Metadata returns a copy of the request metadata.
func (r Request) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}
