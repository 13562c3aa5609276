package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubDirectory struct {
	profile    UserProfile
	profileErr error
	horses     map[uuid.UUID]string
	horsesErr  error
}

func (s stubDirectory) UserProfile(context.Context, uuid.UUID) (UserProfile, error) {
	return s.profile, s.profileErr
}

func (s stubDirectory) HorseNames(context.Context, []uuid.UUID) (map[uuid.UUID]string, error) {
	return s.horses, s.horsesErr
}

func TestTakeSnapshotResolvesNames(t *testing.T) {
	h1, h2 := uuid.New(), uuid.New()
	dir := stubDirectory{
		profile: UserProfile{DisplayName: "Anna Berg", Email: "anna@example.com"},
		horses:  map[uuid.UUID]string{h1: "Comet"},
	}

	snap := TakeSnapshot(context.Background(), dir, nil, uuid.New(), []uuid.UUID{h1, h2})
	assert.Equal(t, "Anna Berg", snap.UserName)
	assert.Equal(t, "anna@example.com", snap.UserEmail)
	assert.Equal(t, []string{"Comet", Unknown}, snap.HorseNames)
}

func TestTakeSnapshotAbsorbsFailures(t *testing.T) {
	dir := stubDirectory{profileErr: errors.New("timeout"), horsesErr: errors.New("timeout")}

	snap := TakeSnapshot(context.Background(), dir, nil, uuid.New(), []uuid.UUID{uuid.New()})
	assert.Equal(t, Unknown, snap.UserName)
	assert.Equal(t, []string{Unknown}, snap.HorseNames)

	snap = TakeSnapshot(context.Background(), nil, nil, uuid.New(), nil)
	assert.Equal(t, Unknown, snap.UserEmail)
	assert.Empty(t, snap.HorseNames)
}
