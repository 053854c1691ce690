// Package agent contains the agent implementations that take part in
// travelmesh workflows:
//
//  1. Identity plumbing (BaseAgent)
//  2. Opaque decision policies (FuncAgent) such as rule-based or manual routing
//  3. Model-centric tool-calling agents (ModelAgent)
//  4. Composite topologies (SequentialAgent, ConcurrentAgent)
//
// Execution Model:
//   - An agent's Run receives a *core.RunContext and returns a core.Result
//   - Agents never append their own answer; the caller records it
//   - Composite agents invoke children through core.InvokeAgent so events
//     are emitted uniformly
package agent
