package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/school"
	"github.com/smartsubmit/smartsubmit/core/user"
)

var (
	// errors
	ErrNotTeacher     = errors.New("only teachers may create assignments")
	ErrInvalidDueDate = errors.New("due date is not a valid date")
)

// accepted due-date layouts, tried in order
var dueDateLayouts = []string{"2006-01-02", time.RFC3339}

type (
	Repository interface {
		// FindOrCreateClass looks (name, year) up first and creates on miss.
		FindOrCreateClass(ctx context.Context, name string, year int) (school.Class, error)
		// FindOrCreateSubject looks the short code up first and creates on miss.
		FindOrCreateSubject(ctx context.Context, code string) (school.Subject, error)
		UserHasSubject(ctx context.Context, userID, subjectID int) (bool, error)
		AddUserSubject(ctx context.Context, userID, subjectID int) error
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	}

	// FileStore persists uploaded attachments on durable storage.
	FileStore interface {
		Save(ctx context.Context, up Upload) (Attachment, error)
		Remove(att Attachment) error
	}

	Service struct {
		repo  Repository
		users user.Repository
		files FileStore
	}
)

func NewService(repo Repository, users user.Repository, files FileStore) *Service {
	return &Service{repo: repo, users: users, files: files}
}

// Create persists a new assignment for a teacher. The class label is
// decomposed heuristically, class and subject are resolved by find-or-create,
// and the teacher-subject link is created if missing. If anything fails after
// attachment files were written, every file written for this request is
// removed before the error is returned.
func (svc *Service) Create(ctx context.Context, na NewAssignment) (Created, error) {
	if err := na.Validate(); err != nil {
		return Created{}, err
	}

	teacher, err := svc.users.GetUserByID(ctx, na.TeacherID)
	if err != nil {
		return Created{}, err
	}
	if !teacher.IsTeacher() {
		return Created{}, ErrNotTeacher
	}

	// the due date must parse before anything is persisted
	dueAt, err := parseDueDate(na.DueDate)
	if err != nil {
		return Created{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: err.Error()})
	}

	className, year := school.ParseClassLabel(na.ClassLabel)
	class, err := svc.repo.FindOrCreateClass(ctx, className, year)
	if err != nil {
		return Created{}, err
	}
	subject, err := svc.repo.FindOrCreateSubject(ctx, na.SubjectCode)
	if err != nil {
		return Created{}, err
	}
	if linked, err := svc.repo.UserHasSubject(ctx, teacher.ID, subject.ID); err != nil {
		return Created{}, err
	} else if !linked {
		if err := svc.repo.AddUserSubject(ctx, teacher.ID, subject.ID); err != nil {
			return Created{}, err
		}
	}

	attachments, err := svc.saveFiles(ctx, na.Files)
	if err != nil {
		return Created{}, err
	}

	a := Assignment{
		Title:       na.Title,
		Description: na.Description,
		DueAt:       dueAt,
		ClassID:     class.ID,
		SubjectID:   subject.ID,
		TeacherID:   teacher.ID,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	a, err = svc.repo.CreateAssignment(ctx, a)
	if err != nil {
		svc.removeFiles(attachments)
		return Created{}, err
	}

	return Created{
		Assignment:  a,
		ClassName:   class.Name,
		SubjectName: subject.Name,
		TeacherName: teacher.FullName(),
	}, nil
}

// saveFiles writes all uploads; on any failure the already-written files of
// this request are removed so no orphans remain on disk.
func (svc *Service) saveFiles(ctx context.Context, files []Upload) ([]Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	attachments := make([]Attachment, 0, len(files))
	for _, up := range files {
		att, err := svc.files.Save(ctx, up)
		if err != nil {
			svc.removeFiles(attachments)
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func (svc *Service) removeFiles(attachments []Attachment) {
	for _, att := range attachments {
		_ = svc.files.Remove(att)
	}
}

func parseDueDate(s string) (time.Time, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDueDate
}
