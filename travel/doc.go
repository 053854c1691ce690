// Package travel is the travel assistant domain: ten mock tools with
// deterministic data, the triage/weather/packing/activities/booking agent
// definitions, and two agent factories. NewModelAgents drives the agents with
// an LLM; NewRuleAgents uses keyword rules so the demo runs offline.
package travel
