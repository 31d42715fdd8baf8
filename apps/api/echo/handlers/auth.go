package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartsubmit/smartsubmit/apps/api/echo/helpers"
	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/user"
)

type authApi struct {
	conf    *core.Config
	service *user.Service
	tokens  *user.TokenSource
}

func RegisterAuthAPI(g *echo.Group, conf *core.Config, svc *user.Service, tokens *user.TokenSource) {
	api := authApi{conf: conf, service: svc, tokens: tokens}

	g.POST("/register", api.register)
	g.POST("/login", api.login)
	g.POST("/logout", api.logout)
	g.GET("/admin/check", api.adminCheck)
}

// register creates an account. Requesting the Admin role is only permitted
// while no admin exists (first-run bootstrap); afterwards admins are managed
// via the admin CLI.
func (api *authApi) register(ctx echo.Context) error {
	data := new(user.NewUser)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if data.RoleID == user.RoleAdmin {
		exists, err := api.service.AdminExists(reqCtx)
		if err != nil {
			return err
		}
		if exists {
			return helpers.ErrForbidden
		}
	}

	usr, err := api.service.Register(reqCtx, *data)
	if err != nil {
		return err
	}
	token, err := api.tokens.Issue(usr)
	if err != nil {
		return err
	}

	return helpers.OK(ctx, http.StatusCreated, echo.Map{"user": usr, "token": token})
}

func (api *authApi) login(ctx echo.Context) error {
	data := new(user.Credentials)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.service.Authenticate(ctx.Request().Context(), data.Email, data.Password, data.Role)
	if err != nil {
		return err
	}
	token, err := api.tokens.Issue(usr)
	if err != nil {
		return err
	}

	return helpers.OKMessage(ctx, http.StatusOK, "login successful", echo.Map{
		"user":  usr,
		"roles": usr.Roles,
		"token": token,
	})
}

// logout is stateless: the client discards its token.
func (api *authApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, helpers.Response{Success: true, Message: "logout successful"})
}

func (api *authApi) adminCheck(ctx echo.Context) error {
	exists, err := api.service.AdminExists(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, adminCheckResponse{Success: true, AdminExists: exists})
}

type adminCheckResponse struct {
	Success     bool `json:"success"`
	AdminExists bool `json:"adminExists"`
}
