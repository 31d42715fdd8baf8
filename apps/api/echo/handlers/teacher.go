package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartsubmit/smartsubmit/apps/api/echo/helpers"
	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/user"
)

type teacherApi struct {
	conf    *core.Config
	service *assignment.Service
}

func RegisterTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *user.Service, asgSvc *assignment.Service) {
	api := teacherApi{conf: conf, service: asgSvc}

	tg := g.Group("/teacher", jwt, helpers.TeacherMiddleware(svc))
	tg.POST("/assignments", api.createAssignment)
}

// createAssignment handles the multipart create form: class, subject, title,
// text, dueDate and up to MaxFiles attachments.
func (api *teacherApi) createAssignment(ctx echo.Context) error {
	teacherID, err := helpers.ContextUserID(ctx)
	if err != nil {
		return err
	}

	na := assignment.NewAssignment{
		TeacherID:   teacherID,
		ClassLabel:  ctx.FormValue("class"),
		SubjectCode: ctx.FormValue("subject"),
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("text"),
		DueDate:     ctx.FormValue("dueDate"),
	}

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		files := form.File["files"]
		if len(files) > api.conf.Uploads.MaxFiles {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("at most %d files may be attached", api.conf.Uploads.MaxFiles))
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			na.Files = append(na.Files, assignment.Upload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Size:        fh.Size,
				Content:     f,
			})
		}
	}

	created, err := api.service.Create(ctx.Request().Context(), na)
	if err != nil {
		return err
	}
	return helpers.OK(ctx, http.StatusCreated, created)
}
