package main

import (
	"fmt"

	"github.com/Webictbyleo/capsule"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	runs, err := deps.Runs.List(deps.Ctx, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No capture runs recorded. Use 'capsule capture' to run one.")
		return nil
	}

	for _, run := range runs {
		status := "failed"
		if run.Complete {
			status = "complete"
		}
		fmt.Fprintf(deps.Stdout, "%s  %-8s  %s  %d downloaded, %d cached, %d failed\n",
			run.StartedAt.Format("2006-01-02 15:04"), status, run.BaseURL,
			run.Downloaded, run.Cached, run.Failed)
	}

	return nil
}
