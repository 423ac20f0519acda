package store

import "github.com/yourorg/integbuilder/pkg/types"

// Store persists workflows and their generation attempts.
type Store interface {
	CreateWorkflow(defaultAuth types.AuthMethod, language string) (*types.Workflow, error)
	GetWorkflow(id string) (*types.Workflow, error)
	SaveWorkflow(w *types.Workflow) error
	ListWorkflows() ([]types.Workflow, error)
	DeleteWorkflow(id string) error

	SaveGeneration(rec *types.GenerationRecord) error
	GetGenerations(workflowID string) ([]types.GenerationRecord, error)

	Close() error
}
