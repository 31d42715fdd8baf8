package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartsubmit/smartsubmit/apps/api/echo/helpers"
	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/roster"
	"github.com/smartsubmit/smartsubmit/core/user"
)

type adminApi struct {
	conf     *core.Config
	importer *roster.Importer
}

func RegisterAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, conf *core.Config, svc *user.Service, importer *roster.Importer) {
	api := adminApi{conf: conf, importer: importer}

	ag := g.Group("/admin", jwt, helpers.AdminMiddleware(svc))
	ag.POST("/import/students", api.importStudents)
	ag.POST("/import/teachers", api.importTeachers)
}

func (api *adminApi) importStudents(ctx echo.Context) error {
	return api.importRoster(ctx, roster.KindStudent)
}

func (api *adminApi) importTeachers(ctx echo.Context) error {
	return api.importRoster(ctx, roster.KindTeacher)
}

// importRoster runs the bulk pipeline on an uploaded spreadsheet. Per-row
// failures never surface as HTTP errors; they are aggregated in the response
// body. Only an unreadable file fails the request as a whole.
func (api *adminApi) importRoster(ctx echo.Context, kind roster.Kind) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}
	if fh.Size > api.conf.Uploads.MaxRosterSize {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("roster file exceeds the %d byte limit", api.conf.Uploads.MaxRosterSize))
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := api.importer.Import(ctx.Request().Context(), f, kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the uploaded file could not be read as a spreadsheet")
	}

	return helpers.OKMessage(ctx, http.StatusOK, res.Message(), res)
}
