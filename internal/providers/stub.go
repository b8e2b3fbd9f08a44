package providers

import (
	"context"
)

// Stub answers in-process with a fixed reply. It backs the offline
// development mode.
type Stub struct {
	id    string
	reply string
}

// NewStub creates a stub that always succeeds with reply
func NewStub(id, reply string) *Stub {
	return &Stub{id: orDefault(id, IDStub), reply: reply}
}

func (s *Stub) ID() string { return s.id }

func (s *Stub) Name() string { return "Stub (" + s.id + ")" }

func (s *Stub) IsConfigured(ctx context.Context) bool { return true }

func (s *Stub) GenerateText(ctx context.Context, prompt string) GenerationResult {
	if err := ctx.Err(); err != nil {
		return Failed(s.id, transportError("Stub", err))
	}
	return Succeeded(s.id, s.reply, nil)
}

func (*Stub) sealed() {}
