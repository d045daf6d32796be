package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sevir/runnerhost/internal/journal"
	"github.com/sevir/runnerhost/pkg/models"
)

// Command describes one invocable host command.
type Command struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func (s *Server) registerCommands() {
	s.commands["start_runner"] = s.cmdStartRunner
	s.commands["stop_runner"] = s.cmdStopRunner
	s.commands["get_runner_status"] = s.cmdGetRunnerStatus
	s.commands["open_logs_folder"] = s.cmdOpenLogsFolder
	s.commands["list_events"] = s.cmdListEvents
}

func commandDefinitions() []Command {
	empty := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}

	return []Command{
		{
			Name:        "start_runner",
			Description: "Start the worker process. A running worker is killed and started again.",
			InputSchema: empty,
		},
		{
			Name:        "stop_runner",
			Description: "Stop the worker process if one is running",
			InputSchema: empty,
		},
		{
			Name:        "get_runner_status",
			Description: "Report whether the worker is believed running, with its pid and uptime",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resources": map[string]interface{}{
						"type":        "boolean",
						"description": "Include memory, CPU and thread usage of the worker process",
						"default":     true,
					},
				},
			},
		},
		{
			Name:        "open_logs_folder",
			Description: "Open the logs folder in the platform file browser",
			InputSchema: empty,
		},
		{
			Name:        "list_events",
			Description: "List recent supervisor transitions, newest first",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kinds": map[string]interface{}{
						"type":        "array",
						"items":       map[string]string{"type": "string"},
						"description": "Only return events of these kinds",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of events to return",
					},
				},
			},
		},
	}
}

type messageResult struct {
	Message string `json:"message"`
}

func (s *Server) cmdStartRunner(ctx context.Context, params json.RawMessage) (interface{}, error) {
	msg, err := s.supervisor.Start()
	if err != nil {
		return nil, err
	}
	return messageResult{Message: msg}, nil
}

func (s *Server) cmdStopRunner(ctx context.Context, params json.RawMessage) (interface{}, error) {
	msg, err := s.supervisor.Stop()
	if err != nil {
		return nil, err
	}
	return messageResult{Message: msg}, nil
}

func (s *Server) cmdGetRunnerStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	// Resources are included unless explicitly disabled, as on the REST route.
	req := struct {
		Resources bool `json:"resources"`
	}{Resources: true}
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	status := s.runnerStatus(ctx, req.Resources)
	return status, nil
}

func (s *Server) cmdOpenLogsFolder(ctx context.Context, params json.RawMessage) (interface{}, error) {
	msg, err := s.host.OpenLogs()
	if err != nil {
		return nil, err
	}
	return messageResult{Message: msg}, nil
}

func (s *Server) cmdListEvents(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Kinds []string `json:"kinds"`
		Limit int      `json:"limit"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	filter := journal.ListFilter{Limit: req.Limit}
	for _, k := range req.Kinds {
		kind := models.EventKind(k)
		if !models.ValidEventKind(kind) {
			return nil, fmt.Errorf("invalid event kind: %s", k)
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	events := s.journal.List(filter)
	return map[string]interface{}{
		"events": events,
		"total":  s.journal.Len(),
	}, nil
}

// runnerStatus returns the supervisor snapshot, optionally with resource
// usage of the worker. Inspection failures leave Resources empty.
func (s *Server) runnerStatus(ctx context.Context, withResources bool) models.RunnerStatus {
	status := s.supervisor.Snapshot()
	if !withResources || !status.Running || s.inspector == nil {
		return status
	}

	res, err := s.inspector.Inspect(ctx, status.PID)
	if err != nil {
		s.logger.Debug().Err(err).Int("pid", status.PID).Msg("resource inspection failed")
		return status
	}
	status.Resources = res
	return status
}
