package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pinguard/pinguard/internal/model"
)

// StoreSuite exercises the RegistrationStore and DoorDirectory contract.
// Backends embed it and set newStore.
type StoreSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func() interface {
		RegistrationStore
		DoorDirectory
	}
	store interface {
		RegistrationStore
		DoorDirectory
	}
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func newReg(owner, pin string, doors ...string) *model.Registration {
	return &model.Registration{OwnerID: owner, PinCode: pin, DoorIDs: doors}
}

func (s *StoreSuite) TestDoors() {
	s.Run("lists seeded doors", func() {
		doors, err := s.store.ListDoors(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(doors, 4)
		s.Equal("main", doors[0].ID)
		s.Equal("Main Entrance", doors[0].Name)
	})

	s.Run("get known and unknown door", func() {
		d, ok, err := s.store.GetDoor(s.ctx, "garage")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal("Garage", d.Name)

		_, ok, err = s.store.GetDoor(s.ctx, "attic")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("missing doors reports every unknown id once", func() {
		missing, err := MissingDoors(s.ctx, s.store, []string{"main", "attic", "roof", "attic"})
		s.Require().NoError(err)
		s.Equal([]string{"attic", "roof"}, missing)
	})
}

func (s *StoreSuite) TestSaveAndGet() {
	s.Run("insert assigns id and timestamps", func() {
		saved, err := s.store.SaveRegistration(s.ctx, newReg("peter", "1234", "main"))
		s.Require().NoError(err)
		s.NotEmpty(saved.ID)
		s.False(saved.CreatedAt.IsZero())

		got, ok, err := s.store.GetRegistration(s.ctx, "peter", "1234")
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal(saved.ID, got.ID)
		s.Equal([]string{"main"}, got.DoorIDs)
		s.Empty(got.Restrictions)
	})

	s.Run("upsert replaces fields and keeps identity", func() {
		first, err := s.store.SaveRegistration(s.ctx, newReg("wanda", "5678", "main"))
		s.Require().NoError(err)

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		next := newReg("wanda", "5678", "gym", "spa")
		next.Restrictions = []model.AccessRestriction{{ValidFrom: &from}}
		second, err := s.store.SaveRegistration(s.ctx, next)
		s.Require().NoError(err)

		s.Equal(first.ID, second.ID)
		s.Equal([]string{"gym", "spa"}, second.DoorIDs)
		s.Require().Len(second.Restrictions, 1)
		s.True(second.Restrictions[0].ValidFrom.Equal(from))

		all, err := s.store.ListRegistrationsForOwner(s.ctx, "wanda")
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("miss is not an error", func() {
		got, ok, err := s.store.GetRegistration(s.ctx, "nobody", "0000")
		s.Require().NoError(err)
		s.False(ok)
		s.Nil(got)
	})

	s.Run("rejects missing key", func() {
		_, err := s.store.SaveRegistration(s.ctx, newReg("", "1234", "main"))
		s.ErrorIs(err, ErrInvalidRegistration)
	})

	s.Run("returned records are copies", func() {
		_, err := s.store.SaveRegistration(s.ctx, newReg("groot", "9999", "main"))
		s.Require().NoError(err)

		got, _, err := s.store.GetRegistration(s.ctx, "groot", "9999")
		s.Require().NoError(err)
		got.DoorIDs[0] = "garage"

		again, _, err := s.store.GetRegistration(s.ctx, "groot", "9999")
		s.Require().NoError(err)
		s.Equal("main", again.DoorIDs[0])
	})
}

func (s *StoreSuite) TestDelete() {
	_, err := s.store.SaveRegistration(s.ctx, newReg("thor", "4321", "garage"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteRegistration(s.ctx, "thor", "4321"))

	_, ok, err := s.store.GetRegistration(s.ctx, "thor", "4321")
	s.Require().NoError(err)
	s.False(ok)

	s.ErrorIs(s.store.DeleteRegistration(s.ctx, "thor", "4321"), ErrRegistrationNotFound)
	s.ErrorIs(s.store.DeleteRegistration(s.ctx, "nobody", "4321"), ErrRegistrationNotFound)
}

func (s *StoreSuite) TestListing() {
	for _, r := range []*model.Registration{
		newReg("peter", "1111", "main"),
		newReg("wanda", "2222", "gym"),
		newReg("peter", "3333", "spa"),
	} {
		_, err := s.store.SaveRegistration(s.ctx, r)
		s.Require().NoError(err)
	}

	all, err := s.store.ListRegistrations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"1111", "2222", "3333"}, []string{all[0].PinCode, all[1].PinCode, all[2].PinCode})

	peter, err := s.store.ListRegistrationsForOwner(s.ctx, "peter")
	s.Require().NoError(err)
	s.Len(peter, 2)

	none, err := s.store.ListRegistrationsForOwner(s.ctx, "groot")
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *StoreSuite) TestFindByPinCode() {
	_, err := s.store.SaveRegistration(s.ctx, newReg("peter", "7777", "main"))
	s.Require().NoError(err)
	_, err = s.store.SaveRegistration(s.ctx, newReg("wanda", "7777", "gym"))
	s.Require().NoError(err)

	s.Run("earliest registration wins", func() {
		got, ok, err := s.store.FindRegistrationByPinCode(s.ctx, "7777")
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal("peter", got.OwnerID)
	})

	s.Run("update does not change resolution order", func() {
		_, err := s.store.SaveRegistration(s.ctx, newReg("peter", "7777", "spa"))
		s.Require().NoError(err)

		got, ok, err := s.store.FindRegistrationByPinCode(s.ctx, "7777")
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal("peter", got.OwnerID)
	})

	s.Run("unknown pin", func() {
		_, ok, err := s.store.FindRegistrationByPinCode(s.ctx, "0000")
		s.Require().NoError(err)
		s.False(ok)
	})
}

// TestConcurrentSaveSameKey checks that racing upserts leave exactly one
// record whose fields all come from a single writer.
func (s *StoreSuite) TestConcurrentSaveSameKey() {
	doors := []string{"main", "garage", "spa", "gym"}
	const writers = 32

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			door := doors[i%len(doors)]
			from := time.Date(2024, 1, 1+i%28, 0, 0, 0, 0, time.UTC)
			reg := newReg("peter", "1234", door)
			reg.Restrictions = []model.AccessRestriction{{ValidFrom: &from}}
			_, err := s.store.SaveRegistration(s.ctx, reg)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	regs, err := s.store.ListRegistrationsForOwner(s.ctx, "peter")
	s.Require().NoError(err)
	s.Require().Len(regs, 1)

	got := regs[0]
	s.Require().Len(got.DoorIDs, 1)
	s.Require().Len(got.Restrictions, 1)

	// The door and window must have been written by the same goroutine.
	day := got.Restrictions[0].ValidFrom.Day() - 1
	var consistent bool
	for i := 0; i < writers; i++ {
		if i%28 == day && doors[i%len(doors)] == got.DoorIDs[0] {
			consistent = true
			break
		}
	}
	s.True(consistent, fmt.Sprintf("merged record: door=%s day=%d", got.DoorIDs[0], day+1))
}
