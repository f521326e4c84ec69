package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pinguard/pinguard/internal/model"
)

type MemoryStoreSuite struct {
	StoreSuite
}

func TestMemoryStoreSuite(t *testing.T) {
	s := new(MemoryStoreSuite)
	s.newStore = func() interface {
		RegistrationStore
		DoorDirectory
	} {
		return NewMemoryStore(model.DefaultDoors())
	}
	suite.Run(t, s)
}

func TestNewMemoryStore_DuplicateDoorKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore([]model.Door{
		{ID: "main", Name: "Old"},
		{ID: "gym", Name: "Gym"},
		{ID: "main", Name: "Main Entrance"},
	})

	doors, err := store.ListDoors(context.Background())
	if err != nil {
		t.Fatalf("ListDoors: %v", err)
	}
	if len(doors) != 2 {
		t.Fatalf("expected 2 doors, got %d", len(doors))
	}
	if doors[0].ID != "main" || doors[0].Name != "Main Entrance" {
		t.Errorf("doors[0] = %+v", doors[0])
	}
}
