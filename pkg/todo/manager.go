package todo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const todosFileName = "todos.yaml"

// Manager persists a List to todos.yaml under a workspace root and handles
// phase archiving and rewind.
type Manager struct {
	workspaceRoot string
}

func NewManager(workspaceRoot string) *Manager {
	return &Manager{workspaceRoot: workspaceRoot}
}

func (m *Manager) todosPath() string {
	return filepath.Join(m.workspaceRoot, todosFileName)
}

// Load reads todos.yaml. A missing file is not an error — it returns an
// empty List so callers can bootstrap.
func (m *Manager) Load() (*List, error) {
	data, err := os.ReadFile(m.todosPath())
	if os.IsNotExist(err) {
		return &List{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}

	var list List
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse todos.yaml: %w", err)
	}
	return &list, nil
}

// Save writes the list to todos.yaml, overwriting any existing content.
func (m *Manager) Save(list *List) error {
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal todos: %w", err)
	}
	if err := os.MkdirAll(m.workspaceRoot, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	if err := os.WriteFile(m.todosPath(), data, 0o644); err != nil {
		return fmt.Errorf("write todos.yaml: %w", err)
	}
	return nil
}

// Archive moves the current todos.yaml under archive/phase-N-{type}/ and
// appends a retrospective stub file. The open list (in the caller's hands)
// should be reset after this call.
func (m *Manager) Archive(phaseNumber int, phaseType string, retrospective string) error {
	list, err := m.Load()
	if err != nil {
		return err
	}

	dir := filepath.Join(m.workspaceRoot, "archive", fmt.Sprintf("phase-%d-%s", phaseNumber, phaseType))
	if err := m.archiveTo(dir, list, retrospective); err != nil {
		return err
	}

	if err := os.Remove(m.todosPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear todos after archive: %w", err)
	}
	return nil
}

// Rewind archives the current list as failed with the given issue note, and
// returns a fresh empty list for the caller to populate with a revised plan.
func (m *Manager) Rewind(phaseNumber int, phaseType string, issue string) (*List, error) {
	list, err := m.Load()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(m.workspaceRoot, "archive", fmt.Sprintf("phase-%d-%s-rev", phaseNumber, phaseType))
	dir = uniqueRevDir(dir)
	retro := fmt.Sprintf("Rewound: %s\n", issue)
	if err := m.archiveTo(dir, list, retro); err != nil {
		return nil, err
	}

	if err := os.Remove(m.todosPath()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("clear todos after rewind: %w", err)
	}

	return &List{}, nil
}

func uniqueRevDir(base string) string {
	dir := base + "-1"
	for i := 2; dirExists(dir); i++ {
		dir = fmt.Sprintf("%s-%d", base, i)
	}
	return dir
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (m *Manager) archiveTo(dir string, list *List, retrospective string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal archived todos: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, todosFileName), data, 0o644); err != nil {
		return fmt.Errorf("write archived todos: %w", err)
	}

	if retrospective == "" {
		retrospective = fmt.Sprintf("Phase archived at %s.\n", time.Now().UTC().Format(time.RFC3339))
	}
	if err := os.WriteFile(filepath.Join(dir, "retrospective.md"), []byte(retrospective), 0o644); err != nil {
		return fmt.Errorf("write retrospective: %w", err)
	}
	return nil
}
