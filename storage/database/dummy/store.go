package dummydb

import (
	"context"

	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/roster"
	"github.com/smartsubmit/smartsubmit/core/school"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// Store implements the domain repositories over the in-memory DB.
type Store struct {
	db *DB
}

var (
	_ user.Repository       = (*Store)(nil)
	_ roster.Repository     = (*Store)(nil)
	_ assignment.Repository = (*Store)(nil)
)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Atomic emulates a transaction by snapshotting the whole DB and restoring
// it when fn fails.
func (s *Store) Atomic(ctx context.Context, fn func(tx roster.Repository) error) error {
	snap := s.db.snapshot()
	if err := fn(s); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

// user.Repository

func (s *Store) CreateUser(ctx context.Context, usr user.User, roleIDs ...int) (user.User, error) {
	s.db.Lock()
	defer s.db.Unlock()

	for _, u := range s.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	usr.ID = s.db.nextPK()
	usr.Roles = nil
	for _, roleID := range roleIDs {
		for _, r := range user.Roles {
			if r.ID == roleID {
				usr.Roles = append(usr.Roles, r)
			}
		}
	}
	s.db.users[usr.ID] = &usr
	return usr, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (user.User, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	if usr, ok := s.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	for _, usr := range s.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	for _, usr := range s.db.users {
		if usr.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UserHasRole(ctx context.Context, userID, roleID int) (bool, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	if usr, ok := s.db.users[userID]; ok {
		for _, r := range usr.Roles {
			if r.ID == roleID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	for _, usr := range s.db.users {
		for _, r := range usr.Roles {
			if r.ID == user.RoleAdmin {
				return true, nil
			}
		}
	}
	return false, nil
}

// shared lookups

func (s *Store) FindOrCreateClass(ctx context.Context, name string, year int) (school.Class, error) {
	s.db.Lock()
	defer s.db.Unlock()

	for _, c := range s.db.classes {
		if c.Name == name && c.Year == year {
			return *c, nil
		}
	}
	c := school.Class{ID: s.db.nextPK(), Name: name, Year: year}
	s.db.classes[c.ID] = &c
	return c, nil
}

func (s *Store) FindOrCreateSubject(ctx context.Context, code string) (school.Subject, error) {
	s.db.Lock()
	defer s.db.Unlock()

	for _, subj := range s.db.subjects {
		if subj.Code == code {
			return *subj, nil
		}
	}
	subj := school.Subject{ID: s.db.nextPK(), Code: code, Name: code}
	s.db.subjects[subj.ID] = &subj
	return subj, nil
}

func (s *Store) AddUserClass(ctx context.Context, userID, classID int) error {
	s.db.Lock()
	defer s.db.Unlock()

	s.db.userClasses[userID] = append(s.db.userClasses[userID], classID)
	return nil
}

func (s *Store) UserHasSubject(ctx context.Context, userID, subjectID int) (bool, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	for _, id := range s.db.userSubjects[userID] {
		if id == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AddUserSubject(ctx context.Context, userID, subjectID int) error {
	s.db.Lock()
	defer s.db.Unlock()

	s.db.userSubjects[userID] = append(s.db.userSubjects[userID], subjectID)
	return nil
}

// UserClasses returns the class ids linked to a user; test helper.
func (s *Store) UserClasses(userID int) []int {
	s.db.RLock()
	defer s.db.RUnlock()
	return append([]int(nil), s.db.userClasses[userID]...)
}

// UserSubjects returns the subject ids linked to a user; test helper.
func (s *Store) UserSubjects(userID int) []int {
	s.db.RLock()
	defer s.db.RUnlock()
	return append([]int(nil), s.db.userSubjects[userID]...)
}

// CountClasses reports the number of class rows; test helper.
func (s *Store) CountClasses() int {
	s.db.RLock()
	defer s.db.RUnlock()
	return len(s.db.classes)
}

// CountUsers reports the number of user rows; test helper.
func (s *Store) CountUsers() int {
	s.db.RLock()
	defer s.db.RUnlock()
	return len(s.db.users)
}

// assignment.Repository

func (s *Store) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.db.Lock()
	defer s.db.Unlock()

	a.ID = s.db.nextPK()
	s.db.assignments[a.ID] = &a
	return a, nil
}
