package flow

// HandoffFlow extends SingleAgentFlow with handoff tools for every permitted
// target so the model can transfer control.
type HandoffFlow struct{ *BaseFlow }

// NewHandoffFlow creates a flow that injects handoff tools.
func NewHandoffFlow(agent FlowAgent, descriptions map[string]string) *HandoffFlow {
	baseFlow := NewSingleAgentFlow(agent).BaseFlow

	baseFlow.AddRequestProcessor(NewHandoffToolInjector(descriptions))

	return &HandoffFlow{BaseFlow: baseFlow}
}
