// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RishabhDotasara/Photoflow/internal/database"
)

// MockProjectStore is a mock implementation of database.ProjectStore
type MockProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*database.Project
	order    []string

	// Track calls
	CompleteCalls int
	CompleteFired int

	// Error injection
	CreateError   error
	GetError      error
	ListError     error
	ExistsError   error
	SetPrefixError error
	UpdateError   error
	CompleteError error
}

// NewMockProjectStore creates a new mock project store
func NewMockProjectStore() *MockProjectStore {
	return &MockProjectStore{
		projects: make(map[string]*database.Project),
	}
}

// AddProject adds a project to the mock store
func (m *MockProjectStore) AddProject(p database.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.projects[p.ID] = &p
}

// Create inserts a new project
func (m *MockProjectStore) Create(ctx context.Context, p *database.Project) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("project-%d", len(m.order)+1)
	}
	if p.Status == "" {
		p.Status = database.ProjectStatusWaiting
	}
	for _, existing := range m.projects {
		if existing.UserID == p.UserID && existing.Name == p.Name {
			return fmt.Errorf("project %q: %w", p.Name, database.ErrConflict)
		}
	}
	cp := *p
	m.projects[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

// Get retrieves a project by ID
func (m *MockProjectStore) Get(ctx context.Context, id string) (*database.Project, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// ListByUser returns all projects owned by a user
func (m *MockProjectStore) ListByUser(ctx context.Context, userID string) ([]database.Project, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Project
	for _, id := range m.order {
		if m.projects[id].UserID == userID {
			result = append(result, *m.projects[id])
		}
	}
	return result, nil
}

// ExistsByName reports whether the user already has a project with that name
func (m *MockProjectStore) ExistsByName(ctx context.Context, userID, name string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projects {
		if p.UserID == userID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// SetStoragePrefix points the project at a storage folder
func (m *MockProjectStore) SetStoragePrefix(ctx context.Context, id, prefix string) error {
	if m.SetPrefixError != nil {
		return m.SetPrefixError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	p.StoragePrefix = prefix
	p.Status = database.ProjectStatusWaiting
	return nil
}

// UpdateStatus sets the project status
func (m *MockProjectStore) UpdateStatus(ctx context.Context, id string, status database.ProjectStatus) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	p.Status = status
	return nil
}

// CompleteIfNotCompleted transitions the project to completed exactly once
func (m *MockProjectStore) CompleteIfNotCompleted(ctx context.Context, id string) (bool, error) {
	if m.CompleteError != nil {
		return false, m.CompleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++
	p, ok := m.projects[id]
	if !ok {
		return false, fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	if p.Status == database.ProjectStatusCompleted {
		return false, nil
	}
	p.Status = database.ProjectStatusCompleted
	m.CompleteFired++
	return true, nil
}

// MockImageStore is a mock implementation of database.ImageStore
type MockImageStore struct {
	mu     sync.RWMutex
	images map[string]*database.Image
	order  []string

	// Error injection
	CreateError       error
	GetError          error
	ByIDsError        error
	ObjectKeysError   error
	UnprocessedError  error
	CountError        error
	SetThumbnailError error
	ClearError        error
}

// NewMockImageStore creates a new mock image store
func NewMockImageStore() *MockImageStore {
	return &MockImageStore{
		images: make(map[string]*database.Image),
	}
}

// AddImage adds an image to the mock store
func (m *MockImageStore) AddImage(img database.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[img.ID]; !ok {
		m.order = append(m.order, img.ID)
	}
	m.images[img.ID] = &img
}

// Create inserts an image row, ErrConflict on duplicate (project, object key)
func (m *MockImageStore) Create(ctx context.Context, img *database.Image) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.images {
		if existing.ProjectID == img.ProjectID && existing.ObjectKey == img.ObjectKey {
			return fmt.Errorf("image %q: %w", img.ObjectKey, database.ErrConflict)
		}
	}
	if img.ID == "" {
		img.ID = fmt.Sprintf("image-%d", len(m.order)+1)
	}
	cp := *img
	m.images[img.ID] = &cp
	m.order = append(m.order, img.ID)
	return nil
}

// Get retrieves an image by ID
func (m *MockImageStore) Get(ctx context.Context, id string) (*database.Image, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, database.ErrNotFound)
	}
	cp := *img
	return &cp, nil
}

// ByIDs retrieves images for the given IDs in insertion order
func (m *MockImageStore) ByIDs(ctx context.Context, ids []string) ([]database.Image, error) {
	if m.ByIDsError != nil {
		return nil, m.ByIDsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	var result []database.Image
	for _, id := range m.order {
		if _, ok := idSet[id]; ok {
			result = append(result, *m.images[id])
		}
	}
	return result, nil
}

// ObjectKeys returns the object keys recorded for a project
func (m *MockImageStore) ObjectKeys(ctx context.Context, projectID string) ([]string, error) {
	if m.ObjectKeysError != nil {
		return nil, m.ObjectKeysError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for _, id := range m.order {
		if m.images[id].ProjectID == projectID {
			keys = append(keys, m.images[id].ObjectKey)
		}
	}
	return keys, nil
}

// Unprocessed returns images awaiting face processing in insertion order
func (m *MockImageStore) Unprocessed(ctx context.Context, projectID string) ([]database.Image, error) {
	if m.UnprocessedError != nil {
		return nil, m.UnprocessedError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Image
	for _, id := range m.order {
		img := m.images[id]
		if img.ProjectID == projectID && !img.Processed {
			result = append(result, *img)
		}
	}
	return result, nil
}

// CountUnprocessed returns the number of unprocessed images of a project
func (m *MockImageStore) CountUnprocessed(ctx context.Context, projectID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, img := range m.images {
		if img.ProjectID == projectID && !img.Processed {
			count++
		}
	}
	return count, nil
}

// Count returns the number of images recorded for a project
func (m *MockImageStore) Count(ctx context.Context, projectID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, img := range m.images {
		if img.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

// SetThumbnailKey records the derived thumbnail object key
func (m *MockImageStore) SetThumbnailKey(ctx context.Context, imageID, key string) error {
	if m.SetThumbnailError != nil {
		return m.SetThumbnailError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[imageID]
	if !ok {
		return fmt.Errorf("image %s: %w", imageID, database.ErrNotFound)
	}
	img.ThumbnailKey = key
	return nil
}

// ClearByProject removes all images of a project
func (m *MockImageStore) ClearByProject(ctx context.Context, projectID string) error {
	if m.ClearError != nil {
		return m.ClearError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var remaining []string
	for _, id := range m.order {
		if m.images[id].ProjectID == projectID {
			delete(m.images, id)
			continue
		}
		remaining = append(remaining, id)
	}
	m.order = remaining
	return nil
}

// MarkProcessed flips the processed flag directly, for test setup.
func (m *MockImageStore) MarkProcessed(imageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img, ok := m.images[imageID]; ok {
		img.Processed = true
	}
}

// MockFaceStore is a mock implementation of database.FaceStore. Similarity
// search computes real cosine distances, so ordering tests are meaningful.
type MockFaceStore struct {
	mu     sync.RWMutex
	faces  map[string][]database.StoredFace // keyed by image ID
	order  []string
	images *MockImageStore
	nextID int64

	// Track calls
	SaveDetectionsCalls []string

	// Error injection
	SaveDetectionsError error
	AllFacesError       error
	CountError          error
	FindSimilarError    error
}

// NewMockFaceStore creates a new mock face store. The image store is used
// to mark images processed and resolve project scoping.
func NewMockFaceStore(images *MockImageStore) *MockFaceStore {
	return &MockFaceStore{
		faces:  make(map[string][]database.StoredFace),
		images: images,
	}
}

// SaveDetections stores faces for an image and marks it processed
func (m *MockFaceStore) SaveDetections(ctx context.Context, imageID string, faces []database.StoredFace) error {
	if m.SaveDetectionsError != nil {
		return m.SaveDetectionsError
	}
	m.mu.Lock()
	m.SaveDetectionsCalls = append(m.SaveDetectionsCalls, imageID)
	if _, ok := m.faces[imageID]; !ok {
		m.order = append(m.order, imageID)
	}
	stored := make([]database.StoredFace, len(faces))
	for i, f := range faces {
		m.nextID++
		f.ID = m.nextID
		f.ImageID = imageID
		stored[i] = f
	}
	m.faces[imageID] = stored
	m.mu.Unlock()

	if m.images != nil {
		m.images.MarkProcessed(imageID)
	}
	return nil
}

// AllFaces returns stored faces ordered by face ID
func (m *MockFaceStore) AllFaces(ctx context.Context, projectID string) ([]database.StoredFace, error) {
	if m.AllFacesError != nil {
		return nil, m.AllFacesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.StoredFace
	for _, imageID := range m.order {
		if !m.imageInProject(imageID, projectID) {
			continue
		}
		result = append(result, m.faces[imageID]...)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CountByProject returns the number of faces stored for a project
func (m *MockFaceStore) CountByProject(ctx context.Context, projectID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for imageID, faces := range m.faces {
		if m.imageInProject(imageID, projectID) {
			count += len(faces)
		}
	}
	return count, nil
}

// FindSimilarImages returns images whose closest face is within threshold,
// ascending by minimum distance with insertion order as tie-break
func (m *MockFaceStore) FindSimilarImages(
	ctx context.Context, embedding []float32, threshold float64, limit int, projectID string,
) ([]database.ImageMatch, error) {
	if m.FindSimilarError != nil {
		return nil, m.FindSimilarError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		imageID  string
		distance float64
		pos      int
	}
	var candidates []scored
	for pos, imageID := range m.order {
		if !m.imageInProject(imageID, projectID) {
			continue
		}
		best := -1.0
		for _, face := range m.faces[imageID] {
			d := database.CosineDistance(embedding, face.Embedding)
			if best < 0 || d < best {
				best = d
			}
		}
		if best >= 0 && best <= threshold {
			candidates = append(candidates, scored{imageID, best, pos})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].pos < candidates[j].pos
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]database.ImageMatch, 0, len(candidates))
	for _, c := range candidates {
		match := database.ImageMatch{Distance: c.distance}
		if m.images != nil {
			if img, err := m.images.Get(ctx, c.imageID); err == nil {
				match.Image = *img
			} else {
				match.Image = database.Image{ID: c.imageID}
			}
		} else {
			match.Image = database.Image{ID: c.imageID}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// imageInProject resolves project scoping through the linked image store.
// Must be called with m.mu held.
func (m *MockFaceStore) imageInProject(imageID, projectID string) bool {
	if projectID == "" {
		return true
	}
	if m.images == nil {
		return true
	}
	img, err := m.images.Get(context.Background(), imageID)
	return err == nil && img.ProjectID == projectID
}

// MockTaskStore is a mock implementation of database.TaskStore
type MockTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*database.TaskRecord
	order []string

	// Error injection
	CreateError error
	GetError    error
	UpdateError error
}

// NewMockTaskStore creates a new mock task store
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks: make(map[string]*database.TaskRecord),
	}
}

// Create records a dispatched task
func (m *MockTaskStore) Create(ctx context.Context, t *database.TaskRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = fmt.Sprintf("task-%d", len(m.order)+1)
	}
	if t.Status == "" {
		t.Status = database.TaskStatusQueued
	}
	cp := *t
	m.tasks[t.ID] = &cp
	m.order = append(m.order, t.ID)
	return nil
}

// Get retrieves a task by ID
func (m *MockTaskStore) Get(ctx context.Context, id string) (*database.TaskRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// UpdateStatus sets the task status, progress and result
func (m *MockTaskStore) UpdateStatus(
	ctx context.Context, id string, status database.TaskStatus, progress int, result []byte,
) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	t.Status = status
	t.Progress = progress
	if len(result) > 0 {
		t.Result = result
	}
	return nil
}

// Tasks returns all recorded tasks in creation order, for assertions.
func (m *MockTaskStore) Tasks() []database.TaskRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.TaskRecord, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.tasks[id])
	}
	return result
}

// MockCounterStore is a mock implementation of database.CounterStore
type MockCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64

	// Error injection
	SetError       error
	IncrementError error
	GetError       error
}

// NewMockCounterStore creates a new mock counter store
func NewMockCounterStore() *MockCounterStore {
	return &MockCounterStore{
		counters: make(map[string]int64),
	}
}

func counterKey(projectID, name string) string {
	return projectID + "/" + name
}

// Set stores a counter value
func (m *MockCounterStore) Set(ctx context.Context, projectID, name string, value int64) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counterKey(projectID, name)] = value
	return nil
}

// Increment atomically adds one and returns the new value
func (m *MockCounterStore) Increment(ctx context.Context, projectID, name string) (int64, error) {
	if m.IncrementError != nil {
		return 0, m.IncrementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counterKey(projectID, name)]++
	return m.counters[counterKey(projectID, name)], nil
}

// Get returns the counter value, zero when missing
func (m *MockCounterStore) Get(ctx context.Context, projectID, name string) (int64, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey(projectID, name)], nil
}

// Verify interface compliance
var _ database.ProjectStore = (*MockProjectStore)(nil)
var _ database.ImageStore = (*MockImageStore)(nil)
var _ database.FaceStore = (*MockFaceStore)(nil)
var _ database.TaskStore = (*MockTaskStore)(nil)
var _ database.CounterStore = (*MockCounterStore)(nil)
