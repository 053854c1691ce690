package travel

import (
	"fmt"

	"github.com/hupe1980/travelmesh/agent"
	"github.com/hupe1980/travelmesh/config"
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/model"
	"github.com/hupe1980/travelmesh/tool"
)

// Options configures the agent factories.
type Options struct {
	// Toolbox supplies the tools. Defaults to NewToolbox().
	Toolbox *Toolbox
}

// resolved merges a config entry with the built-in definition.
type resolved struct {
	Definition
	maxModelCalls int
}

func resolve(ac config.AgentConfig) resolved {
	def, ok := DefinitionOf(ac.Name)
	if !ok {
		def = Definition{Name: ac.Name}
	}

	if ac.Description != "" {
		def.Description = ac.Description
	}

	if ac.Instructions != "" {
		def.Instructions = ac.Instructions
	}

	if ac.Tools != nil {
		def.Tools = append([]string(nil), ac.Tools...)
	}

	return resolved{Definition: def, maxModelCalls: ac.MaxModelCalls}
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Toolbox == nil {
		opts.Toolbox = NewToolbox()
	}

	return opts
}

// NewModelAgents builds one LLM-driven agent per configured agent. Each agent
// gets its travel tools plus the session_state tool; handoff tools are
// injected at run time from the routing table.
func NewModelAgents(llm model.Model, cfg *config.Config, optFns ...func(o *Options)) ([]core.Agent, error) {
	opts := buildOptions(optFns)
	descriptions := cfg.Descriptions()

	agents := make([]core.Agent, 0, len(cfg.Agents))

	for _, ac := range cfg.Agents {
		def := resolve(ac)

		tools, err := opts.Toolbox.Select(def.Tools)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}

		tools = append(tools, tool.NewStateTool())

		agents = append(agents, agent.NewModelAgent(def.Name, llm, func(o *agent.ModelAgentOptions) {
			o.Description = def.Description
			o.Tools = tools
			o.HandoffDescriptions = descriptions
			o.EnableStreaming = cfg.Model.Streaming

			if def.Instructions != "" {
				o.Instruction = agent.NewInstructionFromText(def.Instructions)
			}

			if def.maxModelCalls > 0 {
				o.MaxModelCalls = def.maxModelCalls
			}
		}))
	}

	return agents, nil
}

// RuleAgent is an offline travel agent driven by keyword rules. It calls the
// same tools as its model-driven counterpart.
type RuleAgent struct {
	*agent.FuncAgent
	instructions string
	tools        *tool.Registry
}

// Instructions implements core.Profiler.
func (a *RuleAgent) Instructions() string { return a.instructions }

// ToolNames implements core.Profiler.
func (a *RuleAgent) ToolNames() []string { return a.tools.Names() }

// NewRuleAgents builds a rule-based agent for every configured agent. Only
// the five built-in travel roles are supported.
func NewRuleAgents(cfg *config.Config, optFns ...func(o *Options)) ([]core.Agent, error) {
	opts := buildOptions(optFns)
	agents := make([]core.Agent, 0, len(cfg.Agents))

	for _, ac := range cfg.Agents {
		def := resolve(ac)

		tools, err := opts.Toolbox.Select(def.Tools)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.Name, err)
		}

		rs := ruleSet{agent: def.Name, registry: tool.NewRegistry(tools...)}

		var decide agent.DecisionFunc

		switch def.Name {
		case "triage":
			decide = rs.triage
		case "weather":
			decide = rs.weather
		case "packing":
			decide = rs.packing
		case "activities":
			decide = rs.activities
		case "booking":
			decide = rs.booking
		default:
			return nil, fmt.Errorf("no rules for agent %q", def.Name)
		}

		agents = append(agents, &RuleAgent{
			FuncAgent:    agent.NewFuncAgent(def.Name, def.Description, decide),
			instructions: def.Instructions,
			tools:        rs.registry,
		})
	}

	return agents, nil
}
