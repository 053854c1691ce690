package flow

// SingleAgentFlow is the flow for an agent without handoff targets: a sink in
// the routing table or a member of a sequential or concurrent topology.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a flow with instruction, content and tool processors.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewToolsProcessor())

	return &SingleAgentFlow{BaseFlow: baseFlow}
}
