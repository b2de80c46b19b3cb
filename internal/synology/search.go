package synology

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type searchState int

const (
	searchStarted searchState = iota
	searchPolling
	searchFinished
	searchStopped
)

func (s searchState) String() string {
	switch s {
	case searchStarted:
		return "started"
	case searchPolling:
		return "polling"
	case searchFinished:
		return "finished"
	case searchStopped:
		return "stopped"
	default:
		return fmt.Sprintf("searchState(%d)", int(s))
	}
}

// searchTask tracks one server-side search job.
type searchTask struct {
	id    string
	state searchState
	files []json.RawMessage
}

// SearchFiles runs a FileStation search for pattern under folderPath and
// returns every matched entry. The task is polled until the server reports
// it finished; there is no deadline other than ctx. Once started, the task
// is stopped exactly once on every exit path.
func (c *Client) SearchFiles(ctx context.Context, folderPath, pattern string) ([]json.RawMessage, error) {
	task, err := c.startSearch(ctx, folderPath, pattern)
	if err != nil {
		return nil, err
	}
	defer c.stopSearch(context.WithoutCancel(ctx), task)

	for task.state != searchFinished {
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		if err := c.pollSearch(ctx, task); err != nil {
			return nil, err
		}
	}
	if task.files == nil {
		task.files = []json.RawMessage{}
	}
	return task.files, nil
}

func (c *Client) startSearch(ctx context.Context, folderPath, pattern string) (*searchTask, error) {
	params, err := c.withSession(apiParams(apiSearch, "2", "start"))
	if err != nil {
		return nil, err
	}
	params.Set("folder_path", folderPath)
	params.Set("pattern", pattern)

	env, err := c.call(ctx, endpointEntry, params)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("failed to start search task: %w", apiErrorFrom(env, apiSearch, "start"))
	}
	var data searchStartData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return nil, fmt.Errorf("failed to start search task: response carried no task id")
	}
	return &searchTask{id: data.TaskID, state: searchStarted}, nil
}

func (c *Client) pollSearch(ctx context.Context, task *searchTask) error {
	task.state = searchPolling
	c.metrics.IncSearchPolls()

	params, err := c.withSession(apiParams(apiSearch, "2", "list"))
	if err != nil {
		return err
	}
	params.Set("taskid", task.id)

	env, err := c.call(ctx, endpointEntry, params)
	if err != nil {
		return err
	}
	if !env.Success {
		return apiErrorFrom(env, apiSearch, "list")
	}
	var page searchListData
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return fmt.Errorf("%s list: decode response: %w", apiSearch, err)
	}
	task.files = append(task.files, page.Files...)
	if page.Finished {
		task.state = searchFinished
	}
	return nil
}

// stopSearch releases the task. Its outcome is logged, never returned.
func (c *Client) stopSearch(ctx context.Context, task *searchTask) {
	if task.state == searchStopped {
		return
	}
	task.state = searchStopped

	params, err := c.withSession(apiParams(apiSearch, "2", "stop"))
	if err != nil {
		c.logger.Warn("search task left running", zap.String("taskid", task.id), zap.Error(err))
		return
	}
	params.Set("taskid", task.id)

	env, err := c.call(ctx, endpointEntry, params)
	if err != nil {
		c.logger.Warn("stopping search task failed", zap.String("taskid", task.id), zap.Error(err))
		return
	}
	if !env.Success {
		c.logger.Warn("stopping search task failed",
			zap.String("taskid", task.id), zap.Int("code", errorCode(env.Error)))
	}
}
