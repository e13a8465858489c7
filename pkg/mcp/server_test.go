package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecvizServer(t *testing.T) {
	s := NewRecvizServer(RecvizServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.filters)
	assert.NotNil(t, s.projector)
	assert.NotNil(t, s.notifier)
}

func TestToolRegistration(t *testing.T) {
	s := NewRecvizServer(RecvizServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 6)

	expectedTools := []string{
		"recviz.algorithms",
		"recviz.run",
		"recviz.step",
		"recviz.events",
		"recviz.diagram",
		"recviz.preferences",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"algorithms", "recviz.algorithms", "List the recursive problems that can be visualized"},
		{"run", "recviz.run", "Simulate a recursive algorithm and load the run into a playback session"},
		{"step", "recviz.step", "Move a session's playhead or control its autoplay"},
		{"events", "recviz.events", "Filter a run's event log with an expr condition and optionally project it with jq"},
		{"preferences", "recviz.preferences", "Read the display preferences, or set the theme"},
	}

	s := NewRecvizServer(RecvizServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
