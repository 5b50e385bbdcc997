package server

import "context"

// Responder produces the assistant reply for a chat message. The real AI
// integration lives behind this interface; the default implementation is a
// deterministic echo useful for development and tests.
type Responder interface {
	Respond(ctx context.Context, sessionID, message string) (string, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, sessionID, message string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, sessionID, message string) (string, error) {
	return f(ctx, sessionID, message)
}

// EchoResponder repeats the user's message back.
func EchoResponder() Responder {
	return ResponderFunc(func(_ context.Context, _, message string) (string, error) {
		return "You said: " + message, nil
	})
}
