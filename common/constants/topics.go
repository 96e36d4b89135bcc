package constants

import "fmt"

const (
	// ScraperRunTopic is the subject that triggers a run of a stored scraper.
	ScraperRunTopic = "scraper.run"
	// WorkflowProgressTopicPrefix is the subject prefix for workflow progress events.
	WorkflowProgressTopicPrefix = "scraper.workflow"
)

// WorkflowProgressTopic builds the per-workflow progress subject.
func WorkflowProgressTopic(workflowID string) string {
	return fmt.Sprintf("%s.%s.progress", WorkflowProgressTopicPrefix, workflowID)
}
