package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	echoapi "github.com/smartsubmit/smartsubmit/apps/api/echo"
	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/roster"
	"github.com/smartsubmit/smartsubmit/core/user"
	"github.com/smartsubmit/smartsubmit/services/filestore"
	logsvc "github.com/smartsubmit/smartsubmit/services/logger"
	dummydb "github.com/smartsubmit/smartsubmit/storage/database/dummy"
)

type testServer struct {
	http.Handler

	store  *dummydb.Store
	db     *dummydb.DB
	tokens *user.TokenSource
	conf   *core.Config
}

func newTestServer(t *testing.T, mutate ...func(*core.Config)) *testServer {
	conf := &core.Config{
		TestMode:           true,
		AppName:            "SmartSubmit",
		SecretKey:          "test-secret",
		JWTExpirationDelta: time.Hour,
	}
	conf.Uploads.Dir = t.TempDir()
	conf.Uploads.MaxRosterSize = 5 << 20
	conf.Uploads.MaxFileSize = 10 << 20
	conf.Uploads.MaxFiles = 10
	for _, m := range mutate {
		m(conf)
	}

	db, err := dummydb.Open()
	require.NoError(t, err)
	store := dummydb.NewStore(db)

	files, err := filestore.NewLocal(conf)
	require.NoError(t, err)

	usrSvc := user.NewService(store)
	tokens := user.NewTokenSource(conf)

	srv := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logsvc.NewStdLogger(log.New(io.Discard, "", 0)),
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		Tokens:         tokens,
		Importer:       roster.NewImporter(store, nil),
		AssignmentSvc:  assignment.NewService(store, store, files),
	})
	return &testServer{Handler: srv, store: store, db: db, tokens: tokens, conf: conf}
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func authorize(req *http.Request, token string) *http.Request {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func (ts *testServer) createUser(t *testing.T, first, last, email, pwd string, roleIDs ...int) (user.User, string) {
	usr := user.User{FirstName: first, LastName: last, Email: email, CreatedAt: time.Now().UTC()}
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := ts.store.CreateUser(context.Background(), usr, roleIDs...)
	require.NoError(t, err)

	token, err := ts.tokens.Issue(usr)
	require.NoError(t, err)
	return usr, token
}

// rosterRequest builds a multipart upload with an xlsx workbook under "file".
func rosterRequest(t *testing.T, target string, rows ...[]interface{}) *http.Request {
	f := excelize.NewFile()
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &r))
	}
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = io.Copy(fw, workbook)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestAPI_home(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
}

func TestAPI_register(t *testing.T) {
	ts := newTestServer(t)

	adminReq := func() *http.Request {
		return jsonRequest(t, http.MethodPost, "/api/register", echo.Map{
			"first_name": "Root", "last_name": "Admin",
			"email": "root@school.test", "password": "changeme", "role_id": user.RoleAdmin,
		})
	}

	rec, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/check", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["adminExists"])

	// first-run bootstrap: the first admin may self-register
	rec, body = ts.do(t, adminReq())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	rec, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/check", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["adminExists"])

	// once an admin exists the door closes
	req := jsonRequest(t, http.MethodPost, "/api/register", echo.Map{
		"first_name": "Second", "last_name": "Admin",
		"email": "second@school.test", "password": "changeme", "role_id": user.RoleAdmin,
	})
	rec, body = ts.do(t, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, body["success"])

	// other roles stay open
	req = jsonRequest(t, http.MethodPost, "/api/register", echo.Map{
		"first_name": "Ada", "last_name": "Lovelace",
		"email": "ada@school.test", "password": "s3cret", "role_id": user.RoleStudent,
	})
	rec, _ = ts.do(t, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// duplicate email
	req = jsonRequest(t, http.MethodPost, "/api/register", echo.Map{
		"first_name": "Ada", "last_name": "Again",
		"email": "ada@school.test", "password": "s3cret", "role_id": user.RoleStudent,
	})
	rec, body = ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, user.ErrEmailExists.Error(), body["message"])

	// validation errors come back as a field map
	rec, body = ts.do(t, jsonRequest(t, http.MethodPost, "/api/register", echo.Map{"first_name": "No"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["message"].(map[string]interface{})
	assert.Equal(t, "this field is required", fields["email"])
	assert.Contains(t, fields, "password")
}

func TestAPI_login(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "Grace", "Hopper", "grace@school.test", "pwd123", user.RoleTeacher)

	login := func(payload echo.Map) (*httptest.ResponseRecorder, map[string]interface{}) {
		return ts.do(t, jsonRequest(t, http.MethodPost, "/api/login", payload))
	}

	t.Run("ok", func(t *testing.T) {
		rec, body := login(echo.Map{"email": "grace@school.test", "password": "pwd123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body)
		assert.Equal(t, "login successful", body["message"])
		data := body["data"].(map[string]interface{})
		assert.NotEmpty(t, data["token"])
		assert.NotEmpty(t, data["roles"])
	})

	// a wrong password and an unknown account are indistinguishable
	t.Run("wrong password", func(t *testing.T) {
		rec, body := login(echo.Map{"email": "grace@school.test", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, user.ErrInvalidCredentials.Error(), body["message"])
	})
	t.Run("unknown email", func(t *testing.T) {
		rec, body := login(echo.Map{"email": "ghost@school.test", "password": "pwd123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, user.ErrInvalidCredentials.Error(), body["message"])
	})

	t.Run("role filter", func(t *testing.T) {
		rec, _ := login(echo.Map{"email": "grace@school.test", "password": "pwd123", "role": "TEACHER"})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, _ = login(echo.Map{"email": "grace@school.test", "password": "pwd123", "role": "admin"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("logout", func(t *testing.T) {
		rec, body := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/logout", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "logout successful", body["message"])
	})
}

func TestAPI_tokenGating(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec, body := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/admin/import/students", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, user.ErrTokenMissing.Error(), body["message"])
	})

	t.Run("garbage token", func(t *testing.T) {
		req := authorize(httptest.NewRequest(http.MethodPost, "/api/admin/import/students", nil), "not.a.token")
		rec, body := ts.do(t, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, user.ErrTokenInvalid.Error(), body["message"])
	})

	t.Run("expired token", func(t *testing.T) {
		usr, _ := ts.createUser(t, "Old", "Admin", "old@school.test", "pwd123", user.RoleAdmin)

		user.NowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := ts.tokens.Issue(usr)
		user.NowFunc = time.Now
		require.NoError(t, err)

		req := authorize(httptest.NewRequest(http.MethodPost, "/api/admin/import/students", nil), token)
		rec, _ := ts.do(t, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAPI_importRoster(t *testing.T) {
	ts := newTestServer(t)
	admin, adminToken := ts.createUser(t, "Root", "Admin", "root@school.test", "changeme", user.RoleAdmin)
	_, teacherToken := ts.createUser(t, "Grace", "Hopper", "grace@school.test", "pwd123", user.RoleTeacher)

	header := []interface{}{"Vorname", "Nachname", "Email", "Klasse", "Jahrgang"}

	t.Run("students", func(t *testing.T) {
		req := rosterRequest(t, "/api/admin/import/students",
			header,
			[]interface{}{"Ada", "Lovelace", "ada@school.test", "AKIFT2025", "2025"},
			[]interface{}{"Bad", "Row", "not-an-email", "AKIFT2025", "2025"},
			[]interface{}{"Alan", "Turing", "alan@school.test", "AKIFT2025", "2025"},
		)
		rec, body := ts.do(t, authorize(req, adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body)
		assert.Equal(t, "2 imported, 1 failed", body["message"])

		data := body["data"].(map[string]interface{})
		assert.Len(t, data["success"], 2)
		failed := data["failed"].([]interface{})
		require.Len(t, failed, 1)
		assert.Equal(t, "invalid email", failed[0].(map[string]interface{})["reason"])
	})

	t.Run("teachers", func(t *testing.T) {
		req := rosterRequest(t, "/api/admin/import/teachers",
			[]interface{}{"Vorname", "Nachname", "Email", "Fach_Kuerzel"},
			[]interface{}{"Tim", "Teach", "tim@school.test", "INF, MAT"},
		)
		rec, body := ts.do(t, authorize(req, adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body)
		assert.Equal(t, "1 imported, 0 failed", body["message"])
	})

	t.Run("header-only sheet", func(t *testing.T) {
		req := rosterRequest(t, "/api/admin/import/students", header)
		rec, body := ts.do(t, authorize(req, adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body)
		assert.Equal(t, "0 imported, 0 failed", body["message"])
	})

	t.Run("requires the admin role", func(t *testing.T) {
		req := rosterRequest(t, "/api/admin/import/students", header)
		rec, _ := ts.do(t, authorize(req, teacherToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("revoked role invalidates an existing token", func(t *testing.T) {
		ts.db.RemoveUserRole(admin.ID, user.RoleAdmin)
		defer ts.db.AddUserRole(admin.ID, user.RoleAdmin)

		req := rosterRequest(t, "/api/admin/import/students", header)
		rec, _ := ts.do(t, authorize(req, adminToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no file", func(t *testing.T) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/admin/import/students", &body)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

		rec, resp := ts.do(t, authorize(req, adminToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no file uploaded", resp["message"])
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		fw, err := w.CreateFormFile("file", "roster.xlsx")
		require.NoError(t, err)
		_, err = fw.Write([]byte("plain text, no workbook"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/admin/import/students", &body)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

		rec, resp := ts.do(t, authorize(req, adminToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp["message"], "spreadsheet")
	})
}

func TestAPI_importRoster_sizeLimit(t *testing.T) {
	ts := newTestServer(t, func(conf *core.Config) { conf.Uploads.MaxRosterSize = 16 })
	_, adminToken := ts.createUser(t, "Root", "Admin", "root@school.test", "changeme", user.RoleAdmin)

	req := rosterRequest(t, "/api/admin/import/students",
		[]interface{}{"Vorname", "Nachname", "Email", "Klasse", "Jahrgang"})
	rec, body := ts.do(t, authorize(req, adminToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "limit")
}

// assignmentRequest builds the multipart create form with typed file parts.
func assignmentRequest(t *testing.T, fields map[string]string, files ...[3]string) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		name, contentType, content := f[0], f[1], f[2]
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		h.Set("Content-Type", contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(pw, strings.NewReader(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/teacher/assignments", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func assignmentFields() map[string]string {
	return map[string]string{
		"class":   "AKIFT2025",
		"subject": "INF",
		"title":   "Week 3 homework",
		"text":    "Read chapter 4.",
		"dueDate": "2026-09-15",
	}
}

func TestAPI_createAssignment(t *testing.T) {
	ts := newTestServer(t)
	_, teacherToken := ts.createUser(t, "Grace", "Hopper", "grace@school.test", "pwd123", user.RoleTeacher)
	_, studentToken := ts.createUser(t, "Ada", "Lovelace", "ada@school.test", "s3cret", user.RoleStudent)

	t.Run("ok", func(t *testing.T) {
		req := assignmentRequest(t, assignmentFields(),
			[3]string{"worksheet.pdf", "application/pdf", "%PDF-1.4 stub"})
		rec, body := ts.do(t, authorize(req, teacherToken))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "AKIFT", data["class_name"])
		assert.Equal(t, "INF", data["subject_name"])
		assert.Equal(t, "Grace Hopper", data["teacher_name"])
		attachments := data["attachments"].([]interface{})
		require.Len(t, attachments, 1)
		assert.Equal(t, "worksheet.pdf", attachments[0].(map[string]interface{})["original_name"])
	})

	t.Run("requires the teacher role", func(t *testing.T) {
		rec, _ := ts.do(t, authorize(assignmentRequest(t, assignmentFields()), studentToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		fields := assignmentFields()
		delete(fields, "title")
		rec, body := ts.do(t, authorize(assignmentRequest(t, fields), teacherToken))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fldErrs := body["message"].(map[string]interface{})
		assert.Contains(t, fldErrs, "title")
	})

	t.Run("invalid due date", func(t *testing.T) {
		fields := assignmentFields()
		fields["dueDate"] = "15.09.2026"
		rec, body := ts.do(t, authorize(assignmentRequest(t, fields), teacherToken))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fldErrs := body["message"].(map[string]interface{})
		assert.Contains(t, fldErrs, "due_date")
	})

	t.Run("rejected file type", func(t *testing.T) {
		req := assignmentRequest(t, assignmentFields(),
			[3]string{"setup.exe", "application/octet-stream", "MZ"})
		rec, _ := ts.do(t, authorize(req, teacherToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_createAssignment_fileCountLimit(t *testing.T) {
	ts := newTestServer(t, func(conf *core.Config) { conf.Uploads.MaxFiles = 1 })
	_, teacherToken := ts.createUser(t, "Grace", "Hopper", "grace@school.test", "pwd123", user.RoleTeacher)

	req := assignmentRequest(t, assignmentFields(),
		[3]string{"a.pdf", "application/pdf", "aaaa"},
		[3]string{"b.pdf", "application/pdf", "bbbb"})
	rec, body := ts.do(t, authorize(req, teacherToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["message"], "at most")
}
