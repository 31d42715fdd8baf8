package roster

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/school"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// Kind selects the per-row variant of the import pipeline.
type Kind int

const (
	KindStudent Kind = iota
	KindTeacher
)

func (k Kind) roleID() int {
	if k == KindTeacher {
		return user.RoleTeacher
	}
	return user.RoleStudent
}

// Sheet column headers (first row of the first sheet).
const (
	colFirstName = "vorname"
	colLastName  = "nachname"
	colEmail     = "email"
	colClasses   = "klasse"
	colYear      = "jahrgang"
	colSubjects  = "fach_kuerzel"
)

// Row failure reasons surfaced verbatim in the response body.
var (
	reasonMissingFields = "missing required fields"
	reasonInvalidEmail  = "invalid email"
	reasonEmailExists   = "email already exists"

	errNoSheets = errors.New("the workbook contains no sheets")

	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type (
	// Repository is the storage contract of the import pipeline. Atomic runs
	// fn inside one transaction; all other writes of a row go through the
	// transactional Repository handed to fn.
	Repository interface {
		EmailExists(ctx context.Context, email string) (bool, error)
		Atomic(ctx context.Context, fn func(tx Repository) error) error

		CreateUser(ctx context.Context, usr user.User, roleIDs ...int) (user.User, error)
		// FindOrCreateClass looks (name, year) up first and creates on miss.
		FindOrCreateClass(ctx context.Context, name string, year int) (school.Class, error)
		AddUserClass(ctx context.Context, userID, classID int) error
		// FindOrCreateSubject looks the short code up first and creates on miss.
		FindOrCreateSubject(ctx context.Context, code string) (school.Subject, error)
		UserHasSubject(ctx context.Context, userID, subjectID int) (bool, error)
		AddUserSubject(ctx context.Context, userID, subjectID int) error
	}

	// RowSummary reports one successfully imported row.
	RowSummary struct {
		FirstName string   `json:"first_name"`
		LastName  string   `json:"last_name"`
		Email     string   `json:"email"`
		Classes   []string `json:"classes,omitempty"`
		Year      int      `json:"year,omitempty"`
		Subjects  []string `json:"subjects,omitempty"`
	}

	// RowFailure echoes the raw row together with the failure reason.
	RowFailure struct {
		Row    map[string]string `json:"row"`
		Reason string            `json:"reason"`
	}

	// Result partitions the sheet's data rows; both lists preserve input
	// order and their lengths always sum to the number of data rows.
	Result struct {
		Succeeded []RowSummary `json:"success"`
		Failed    []RowFailure `json:"failed"`
	}

	Importer struct {
		repo   Repository
		mailer core.EmailService
	}
)

func (r Result) Message() string {
	return fmt.Sprintf("%d imported, %d failed", len(r.Succeeded), len(r.Failed))
}

// NewImporter returns a roster Importer. mailer may be nil; when set, each
// successfully imported user is sent a welcome email.
func NewImporter(repo Repository, mailer core.EmailService) *Importer {
	return &Importer{repo: repo, mailer: mailer}
}

// Import parses the first sheet of an xlsx workbook and processes it row by
// row. No row's failure aborts the batch: each row either commits fully or
// rolls back and is recorded in Result.Failed with its reason. A readable
// sheet without data rows yields an empty Result; only an unreadable workbook
// fails as a whole.
func (imp *Importer) Import(ctx context.Context, r io.Reader, kind Kind) (Result, error) {
	rows, err := readFirstSheet(r)
	if err != nil {
		return Result{}, err
	}

	res := Result{Succeeded: []RowSummary{}, Failed: []RowFailure{}}
	for _, row := range rows {
		var summary RowSummary
		if kind == KindTeacher {
			summary, err = imp.importTeacher(ctx, row)
		} else {
			summary, err = imp.importStudent(ctx, row)
		}
		if err != nil {
			res.Failed = append(res.Failed, RowFailure{Row: row, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, summary)
	}
	return res, nil
}

func (imp *Importer) importStudent(ctx context.Context, row map[string]string) (RowSummary, error) {
	first, last := row[colFirstName], row[colLastName]
	email := core.CleanString(row[colEmail], true /* lower */)
	classes, yearStr := row[colClasses], row[colYear]

	if first == "" || last == "" || email == "" || classes == "" || yearStr == "" {
		return RowSummary{}, errors.New(reasonMissingFields)
	}
	if !emailRe.MatchString(email) {
		return RowSummary{}, errors.New(reasonInvalidEmail)
	}
	if exists, err := imp.repo.EmailExists(ctx, email); err != nil {
		return RowSummary{}, err
	} else if exists {
		return RowSummary{}, errors.New(reasonEmailExists)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return RowSummary{}, err
	}
	classNames := core.SplitList(classes)

	usr := user.User{FirstName: first, LastName: last, Email: email}
	if err := usr.SetPassword(initialPassword(first, last)); err != nil {
		return RowSummary{}, err
	}

	err = imp.repo.Atomic(ctx, func(tx Repository) error {
		created, err := tx.CreateUser(ctx, usr, user.RoleStudent)
		if err != nil {
			return err
		}
		for _, name := range classNames {
			class, err := tx.FindOrCreateClass(ctx, name, year)
			if err != nil {
				return err
			}
			if err := tx.AddUserClass(ctx, created.ID, class.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RowSummary{}, err
	}

	imp.sendWelcome(usr)
	return RowSummary{FirstName: first, LastName: last, Email: email, Classes: classNames, Year: year}, nil
}

func (imp *Importer) importTeacher(ctx context.Context, row map[string]string) (RowSummary, error) {
	first, last := row[colFirstName], row[colLastName]
	email := core.CleanString(row[colEmail], true /* lower */)

	if first == "" || last == "" || email == "" {
		return RowSummary{}, errors.New(reasonMissingFields)
	}
	if !emailRe.MatchString(email) {
		return RowSummary{}, errors.New(reasonInvalidEmail)
	}
	if exists, err := imp.repo.EmailExists(ctx, email); err != nil {
		return RowSummary{}, err
	} else if exists {
		return RowSummary{}, errors.New(reasonEmailExists)
	}

	// class membership and subject codes are optional for teachers
	var year int
	var classNames []string
	if classes, yearStr := row[colClasses], row[colYear]; classes != "" && yearStr != "" {
		var err error
		if year, err = strconv.Atoi(strings.TrimSpace(yearStr)); err != nil {
			return RowSummary{}, err
		}
		classNames = core.SplitList(classes)
	}
	subjectCodes := core.SplitList(row[colSubjects])

	usr := user.User{FirstName: first, LastName: last, Email: email}
	if err := usr.SetPassword(initialPassword(first, last)); err != nil {
		return RowSummary{}, err
	}

	err := imp.repo.Atomic(ctx, func(tx Repository) error {
		created, err := tx.CreateUser(ctx, usr, user.RoleTeacher)
		if err != nil {
			return err
		}
		for _, name := range classNames {
			class, err := tx.FindOrCreateClass(ctx, name, year)
			if err != nil {
				return err
			}
			if err := tx.AddUserClass(ctx, created.ID, class.ID); err != nil {
				return err
			}
		}
		for _, code := range subjectCodes {
			subj, err := tx.FindOrCreateSubject(ctx, code)
			if err != nil {
				return err
			}
			// the link table has no composite uniqueness guard; check first
			if linked, err := tx.UserHasSubject(ctx, created.ID, subj.ID); err != nil {
				return err
			} else if linked {
				continue
			}
			if err := tx.AddUserSubject(ctx, created.ID, subj.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RowSummary{}, err
	}

	imp.sendWelcome(usr)
	return RowSummary{FirstName: first, LastName: last, Email: email, Classes: classNames, Year: year, Subjects: subjectCodes}, nil
}

// initialPassword derives the deterministic first-login password. Users are
// expected to change it after their first login.
func initialPassword(first, last string) string {
	return strings.ToLower(first + last)
}

func (imp *Importer) sendWelcome(usr user.User) {
	if imp.mailer == nil {
		return
	}
	imp.mailer.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Your SmartSubmit account",
		Body: fmt.Sprintf(
			"Hello %s,\n\nan account has been created for you. Sign in with your email "+
				"address and your initial password, then change it right away.\n", usr.FirstName),
	})
}

// readFirstSheet returns the data rows of the workbook's first sheet as
// header-keyed maps. Headers are matched case-insensitively; empty cells are
// omitted from the map.
func readFirstSheet(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading sheet")
	}
	if len(rows) < 2 {
		return nil, nil // header only, or empty sheet: nothing to import
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = core.CleanString(h, true /* lower */)
	}

	data := make([]map[string]string, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(map[string]string, len(header))
		for i, cell := range cells {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				row[header[i]] = cell
			}
		}
		if len(row) == 0 {
			continue // skip fully blank rows
		}
		data = append(data, row)
	}
	return data, nil
}
