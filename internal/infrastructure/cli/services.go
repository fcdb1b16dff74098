package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/taskdeck/taskdeck/pkg/application"
	"github.com/taskdeck/taskdeck/pkg/runner"
	"github.com/taskdeck/taskdeck/pkg/storage"
)

var projectPath string

// appServices bundles the wired application layer for a single workspace.
type appServices struct {
	repo         *storage.FilesystemRepository
	executor     *application.TaskExecutor
	orchestrator *application.Orchestrator
	logger       *zap.Logger
}

func getWorkspaceRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("workspace path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadServices(verbose bool) (*appServices, error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return nil, err
	}
	repo := storage.NewFilesystemRepository(root)
	if !repo.IsInitialized() {
		return nil, fmt.Errorf("no taskdeck workspace found at %s (run 'taskdeck init' first)", root)
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	r := runner.NewResilient(runner.Echo(), runner.DefaultCallTimeout)
	executor := application.NewTaskExecutor(repo, repo, nil, r,
		application.DefaultRetryPolicy(), logger)
	orchestrator := application.NewOrchestrator(repo, repo, executor, 0, logger)

	return &appServices{
		repo:         repo,
		executor:     executor,
		orchestrator: orchestrator,
		logger:       logger,
	}, nil
}
