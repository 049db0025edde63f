package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRepository is an in-memory repositories.Repository. Its submission
// store enforces the unique (assessment_id, student_id, attempt_number)
// index the same way Postgres does, returning gorm.ErrDuplicatedKey, so the
// submit retry loop can be exercised without a database.
type mockRepository struct {
	mu sync.Mutex

	assessments map[uint]*models.Assessment
	submissions map[uint]*models.Submission
	users       map[string]*models.User

	nextAssessmentID uint
	nextSubmissionID uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		assessments:      make(map[uint]*models.Assessment),
		submissions:      make(map[uint]*models.Submission),
		users:            make(map[string]*models.User),
		nextAssessmentID: 1,
		nextSubmissionID: 1,
	}
}

func (m *mockRepository) Assessment() repositories.AssessmentRepository { return (*mockAssessments)(m) }
func (m *mockRepository) Submission() repositories.SubmissionRepository { return (*mockSubmissions)(m) }
func (m *mockRepository) User() repositories.UserRepository             { return (*mockUsers)(m) }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

func (m *mockRepository) addUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *mockRepository) addAssessment(a *models.Assessment) *models.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.nextAssessmentID
		m.nextAssessmentID++
	}
	copied := *a
	m.assessments[a.ID] = &copied
	return a
}

// ===== assessments =====

type mockAssessments mockRepository

func (m *mockAssessments) Create(ctx context.Context, assessment *models.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assessment.ID = m.nextAssessmentID
	m.nextAssessmentID++
	copied := *assessment
	m.assessments[assessment.ID] = &copied
	return nil
}

func (m *mockAssessments) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockAssessments) Update(ctx context.Context, assessment *models.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[assessment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *assessment
	m.assessments[assessment.ID] = &copied
	return nil
}

func (m *mockAssessments) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assessments, id)
	return nil
}

func (m *mockAssessments) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Assessment
	for _, a := range m.assessments {
		if filters.Published != nil && a.Published != *filters.Published {
			continue
		}
		if filters.OwnerID != nil && a.OwnerID != *filters.OwnerID {
			continue
		}
		if filters.ClassID != nil && a.ClassID != *filters.ClassID {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (m *mockAssessments) GetStats(ctx context.Context, id uint) (*repositories.AssessmentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repositories.AssessmentStats{}
	students := make(map[string]bool)
	var scoreSum float64
	var scored int
	for _, s := range m.submissions {
		if s.AssessmentID != id {
			continue
		}
		stats.TotalSubmissions++
		students[s.StudentID] = true
		switch s.Status {
		case models.StatusGraded:
			stats.GradedSubmissions++
		case models.StatusLate:
			stats.LateSubmissions++
		}
		if s.Score != nil {
			scoreSum += *s.Score
			scored++
		}
	}
	stats.DistinctStudents = len(students)
	if scored > 0 {
		stats.AverageScore = scoreSum / float64(scored)
	}
	return stats, nil
}

// ===== submissions =====

type mockSubmissions mockRepository

func (m *mockSubmissions) Create(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.AssessmentID == submission.AssessmentID &&
			s.StudentID == submission.StudentID &&
			s.AttemptNumber == submission.AttemptNumber {
			return fmt.Errorf("insert submission: %w", gorm.ErrDuplicatedKey)
		}
	}
	submission.ID = m.nextSubmissionID
	m.nextSubmissionID++
	copied := *submission
	m.submissions[submission.ID] = &copied
	return nil
}

func (m *mockSubmissions) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSubmissions) Update(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *submission
	m.submissions[submission.ID] = &copied
	return nil
}

func (m *mockSubmissions) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.submissions, id)
	return nil
}

func (m *mockSubmissions) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Submission
	for _, s := range m.submissions {
		if filters.AssessmentID != nil && s.AssessmentID != *filters.AssessmentID {
			continue
		}
		if filters.StudentID != nil && s.StudentID != *filters.StudentID {
			continue
		}
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (m *mockSubmissions) CountAttempts(ctx context.Context, assessmentID uint, studentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.submissions {
		if s.AssessmentID == assessmentID && s.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (m *mockSubmissions) GetLatest(ctx context.Context, assessmentID uint, studentID string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Submission
	for _, s := range m.submissions {
		if s.AssessmentID != assessmentID || s.StudentID != studentID {
			continue
		}
		if latest == nil || s.AttemptNumber > latest.AttemptNumber {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *mockSubmissions) ListLatestPerStudent(ctx context.Context, assessmentID uint) ([]*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := make(map[string]*models.Submission)
	for _, s := range m.submissions {
		if s.AssessmentID != assessmentID {
			continue
		}
		if cur, ok := latest[s.StudentID]; !ok || s.AttemptNumber > cur.AttemptNumber {
			latest[s.StudentID] = s
		}
	}
	out := make([]*models.Submission, 0, len(latest))
	for _, s := range latest {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockSubmissions) HasSubmissions(ctx context.Context, assessmentID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.AssessmentID == assessmentID {
			return true, nil
		}
	}
	return false, nil
}

// ===== users =====

type mockUsers mockRepository

func (m *mockUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockUsers) ExistsByID(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}
