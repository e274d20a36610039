package orchestrator

import (
	"fmt"
	"sync"

	"github.com/loomwork/loom/pkg/datasource"
)

// DatasourceStore is the orchestrator's CRUD surface over declared
// datasources (§4.6), keyed by an opaque id distinct from datasource.Name
// so renaming a datasource doesn't break jobs that reference it by id.
type DatasourceStore struct {
	mu   sync.Mutex
	next int
	rows map[string]datasource.Datasource
}

func NewDatasourceStore() *DatasourceStore {
	return &DatasourceStore{rows: make(map[string]datasource.Datasource)}
}

func (s *DatasourceStore) Create(ds datasource.Datasource) (string, error) {
	if err := validateDatasource(ds); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("ds-%d", s.next)
	s.rows[id] = ds
	return id, nil
}

func (s *DatasourceStore) Get(id string) (datasource.Datasource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.rows[id]
	return ds, ok
}

func (s *DatasourceStore) Update(id string, ds datasource.Datasource) error {
	if err := validateDatasource(ds); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("datasource %s not found", id)
	}
	s.rows[id] = ds
	return nil
}

func (s *DatasourceStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("datasource %s not found", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *DatasourceStore) List() map[string]datasource.Datasource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]datasource.Datasource, len(s.rows))
	for id, ds := range s.rows {
		out[id] = ds
	}
	return out
}

// Resolve looks up every id in ids, skipping ones that no longer exist
// (a job submitted with a since-deleted datasource id simply loses that
// capability rather than failing job submission).
func (s *DatasourceStore) Resolve(ids []string) []datasource.Datasource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datasource.Datasource, 0, len(ids))
	for _, id := range ids {
		if ds, ok := s.rows[id]; ok {
			out = append(out, ds)
		}
	}
	return out
}

func validateDatasource(ds datasource.Datasource) error {
	switch ds.Type {
	case datasource.TypePostgreSQL, datasource.TypeNeo4j, datasource.TypeMongoDB:
	default:
		return fmt.Errorf("unsupported datasource type: %s", ds.Type)
	}
	if ds.Name == "" {
		return fmt.Errorf("datasource name is required")
	}
	if ds.Scope == datasource.ScopeJobScope && ds.JobID == "" {
		return fmt.Errorf("job-scoped datasource requires job_id")
	}
	return nil
}
