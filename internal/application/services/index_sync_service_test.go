package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
)

// memoryTutorIndex answers searches from the documents it was last given
type memoryTutorIndex struct {
	mu   sync.Mutex
	docs map[string]*entities.User
}

func newMemoryTutorIndex() *memoryTutorIndex {
	return &memoryTutorIndex{docs: map[string]*entities.User{}}
}

func (m *memoryTutorIndex) Index(ctx context.Context, tutor *entities.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[tutor.ID] = tutor
	return nil
}

func (m *memoryTutorIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memoryTutorIndex) SearchIDs(ctx context.Context, params repositories.TutorSearchParams) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := []string{}
	for id, u := range m.docs {
		if params.Course != "" && !u.HasCourse(params.Course) {
			continue
		}
		if params.Day != "" && !u.AvailableOn(params.Day) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func TestIndexSyncService_Sync(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	tutor, _ := f.tutorWith(t, "MAC 2313")
	student, _ := f.signup(t, entities.RoleStudent, "Alan", "Kay")

	index := new(MockTutorIndex)
	index.On("Index", mock.Anything, mock.MatchedBy(func(u *entities.User) bool {
		return u.ID == tutor.ID && u.HasCourse("MAC 2313") && len(u.Availability) == 1
	})).Return(nil).Once()
	index.On("Delete", mock.Anything, student.ID).Return(nil).Once()
	index.On("Delete", mock.Anything, "gone").Return(nil).Once()

	svc := services.NewIndexSyncService(f.store.Users(), index, f.bus)
	require.NoError(t, svc.Sync(ctx, tutor.ID))
	require.NoError(t, svc.Sync(ctx, student.ID))
	require.NoError(t, svc.Sync(ctx, "gone"))

	index.AssertExpectations(t)
}

func TestIndexSyncService_FollowsEvents(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	tutor, principal := f.signup(t, entities.RoleTutor, "Ada", "Lovelace")

	index := new(MockTutorIndex)
	indexed := make(chan *entities.User, 4)
	index.On("Index", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		indexed <- args.Get(1).(*entities.User)
	}).Return(nil)

	svc := services.NewIndexSyncService(f.store.Users(), index, f.bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	_, err := f.tutors.AddCourse(ctx, principal, tutor.ID, "MAC 2313")
	require.NoError(t, err)

	select {
	case u := <-indexed:
		assert.Equal(t, tutor.ID, u.ID)
		assert.Equal(t, []string{"MAC 2313"}, u.Courses)
	case <-time.After(time.Second):
		t.Fatal("tutor was not reindexed")
	}
}

func TestIndexSyncService_ReindexAll(t *testing.T) {
	f := newFixture(t, true)
	seedTutors(t, f)
	f.signup(t, entities.RoleStudent, "Alan", "Kay")

	index := new(MockTutorIndex)
	index.On("Index", mock.Anything, mock.Anything).Return(nil)

	svc := services.NewIndexSyncService(f.store.Users(), index, f.bus)
	n, err := svc.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	index.AssertNumberOfCalls(t, "Index", 3)
}

func TestIndexSyncService_WritesAreSearchableWithoutEvents(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	index := newMemoryTutorIndex()
	// the event worker is never started, as if every event were lost
	indexSync := services.NewIndexSyncService(f.store.Users(), index, f.bus)
	f.tutors.OnTutorChange(indexSync)
	f.identity.OnTutorChange(indexSync)
	search := services.NewSearchService(f.store.Users(), index, time.Second)

	tutor, principal := f.signup(t, entities.RoleTutor, "Ada", "Lovelace")
	_, err := f.tutors.AddCourse(ctx, principal, tutor.ID, "MAC 2313")
	require.NoError(t, err)

	got, err := search.Search(ctx, repositories.TutorSearchParams{Course: "MAC 2313"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lovelace"}, lastNames(got))

	_, err = f.tutors.AddAvailability(ctx, principal, tutor.ID, services.SlotInput{Day: "Friday", StartTime: "10:00", EndTime: "11:00"})
	require.NoError(t, err)
	got, err = search.Search(ctx, repositories.TutorSearchParams{Course: "MAC 2313", Day: "Friday"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.tutors.RemoveCourse(ctx, principal, tutor.ID, "MAC 2313")
	require.NoError(t, err)
	got, err = search.Search(ctx, repositories.TutorSearchParams{Course: "MAC 2313"})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, f.identity.DeleteUser(ctx, tutor.ID))
	ids, err := index.SearchIDs(ctx, repositories.TutorSearchParams{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
