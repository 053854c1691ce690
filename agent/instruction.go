package agent

import "github.com/hupe1980/travelmesh/core"

// InstructionFunc supplies instruction text at runtime, e.g. derived from
// session state.
type InstructionFunc func(*core.RunContext) (string, error)

// Instruction represents either a static instruction string or a dynamic provider.
type Instruction struct {
	text string
	fn   InstructionFunc
}

// NewInstructionFromText creates an Instruction from a static string. The
// text may contain {{ .key }} references to session state.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(fn InstructionFunc) Instruction { return Instruction{fn: fn} }

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.fn == nil }

// Text returns the static text (empty for dynamic instructions).
func (i Instruction) Text() string { return i.text }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(runCtx *core.RunContext) (string, error) {
	if i.fn != nil {
		return i.fn(runCtx)
	}

	return i.text, nil
}
