package assignment

import (
	"io"
	"time"

	"github.com/smartsubmit/smartsubmit/core"
)

// Attachment is the stored metadata of one uploaded file. The set of fields
// is persisted as a serialized list on the assignment row.
type Attachment struct {
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Assignment struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueAt       time.Time    `json:"due_at"`
	ClassID     int          `json:"class_id"`
	SubjectID   int          `json:"subject_id"`
	TeacherID   int          `json:"teacher_id"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
}

// Upload is one file received with the create request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	TeacherID   int
	ClassLabel  string `json:"class" validate:"required"`
	SubjectCode string `json:"subject" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"text"`
	DueDate     string `json:"due_date" validate:"required"`
	Files       []Upload
}

func (na *NewAssignment) Validate() error {
	na.ClassLabel = core.CleanString(na.ClassLabel)
	na.SubjectCode = core.CleanString(na.SubjectCode)
	na.Title = core.CleanString(na.Title)
	na.DueDate = core.CleanString(na.DueDate)
	return core.Validate.Struct(na)
}

// Created is the successful result: the persisted assignment plus the
// resolved class, subject and teacher display data.
type Created struct {
	Assignment
	ClassName   string `json:"class_name"`
	SubjectName string `json:"subject_name"`
	TeacherName string `json:"teacher_name"`
}
