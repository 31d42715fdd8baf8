package dummydb

import (
	"sync"

	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/school"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// DB is an in-memory stand-in for the relational store; used in tests.
type DB struct {
	sync.RWMutex

	pk           int
	users        map[int]*user.User
	classes      map[int]*school.Class
	subjects     map[int]*school.Subject
	userClasses  map[int][]int // user id -> class ids
	userSubjects map[int][]int // user id -> subject ids
	assignments  map[int]*assignment.Assignment
}

func Open() (*DB, error) {
	return &DB{
		users:        make(map[int]*user.User),
		classes:      make(map[int]*school.Class),
		subjects:     make(map[int]*school.Subject),
		userClasses:  make(map[int][]int),
		userSubjects: make(map[int][]int),
		assignments:  make(map[int]*assignment.Assignment),
	}, nil
}

func (db *DB) nextPK() int {
	db.pk++
	return db.pk
}

// RemoveUserRole revokes a role membership; test helper for privilege
// revocation scenarios.
func (db *DB) RemoveUserRole(userID, roleID int) {
	db.Lock()
	defer db.Unlock()

	if usr, ok := db.users[userID]; ok {
		roles := usr.Roles[:0]
		for _, r := range usr.Roles {
			if r.ID != roleID {
				roles = append(roles, r)
			}
		}
		usr.Roles = roles
	}
}

// AddUserRole grants a role membership; test helper.
func (db *DB) AddUserRole(userID, roleID int) {
	db.Lock()
	defer db.Unlock()

	usr, ok := db.users[userID]
	if !ok {
		return
	}
	for _, r := range usr.Roles {
		if r.ID == roleID {
			return
		}
	}
	for _, r := range user.Roles {
		if r.ID == roleID {
			usr.Roles = append(usr.Roles, r)
		}
	}
}

// snapshot captures the full DB state for transaction rollback.
type snapshot struct {
	pk           int
	users        map[int]*user.User
	classes      map[int]*school.Class
	subjects     map[int]*school.Subject
	userClasses  map[int][]int
	userSubjects map[int][]int
	assignments  map[int]*assignment.Assignment
}

func (db *DB) snapshot() snapshot {
	db.RLock()
	defer db.RUnlock()

	snap := snapshot{
		pk:           db.pk,
		users:        make(map[int]*user.User, len(db.users)),
		classes:      make(map[int]*school.Class, len(db.classes)),
		subjects:     make(map[int]*school.Subject, len(db.subjects)),
		userClasses:  make(map[int][]int, len(db.userClasses)),
		userSubjects: make(map[int][]int, len(db.userSubjects)),
		assignments:  make(map[int]*assignment.Assignment, len(db.assignments)),
	}
	for id, u := range db.users {
		cp := *u
		cp.Roles = append([]user.Role(nil), u.Roles...)
		snap.users[id] = &cp
	}
	for id, c := range db.classes {
		cp := *c
		snap.classes[id] = &cp
	}
	for id, s := range db.subjects {
		cp := *s
		snap.subjects[id] = &cp
	}
	for id, ids := range db.userClasses {
		snap.userClasses[id] = append([]int(nil), ids...)
	}
	for id, ids := range db.userSubjects {
		snap.userSubjects[id] = append([]int(nil), ids...)
	}
	for id, a := range db.assignments {
		cp := *a
		snap.assignments[id] = &cp
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.Lock()
	defer db.Unlock()

	db.pk = snap.pk
	db.users = snap.users
	db.classes = snap.classes
	db.subjects = snap.subjects
	db.userClasses = snap.userClasses
	db.userSubjects = snap.userSubjects
	db.assignments = snap.assignments
}
