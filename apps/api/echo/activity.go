package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
)

type (
	activityApi struct {
		svc      activity.ServiceInterface
		store    StorePinger
		validate *validator.Validate
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func registerActivityAPI(
	g *echo.Group,
	rateLimiter echo.MiddlewareFunc,
	svc activity.ServiceInterface,
	store StorePinger,
	validate *validator.Validate,
) {
	api := activityApi{
		svc:      svc,
		store:    store,
		validate: validate,
	}

	var signupMiddlewares []echo.MiddlewareFunc
	if rateLimiter != nil {
		signupMiddlewares = append(signupMiddlewares, rateLimiter)
	}

	g.GET("", api.query)
	g.GET("/:name", api.retrieve)
	g.POST("/:name/signup", api.signup, signupMiddlewares...)
}

// pathName returns the decoded activity name of the request path.
// echo leaves path params escaped when the request has a RawPath.
func pathName(ctx echo.Context) string {
	raw := ctx.Param("name")
	if ctx.Request().URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

const storePingTimeout = 2 * time.Second

// storeError wraps an unexpected store error. When the store no longer answers a ping, the error
// becomes a shutdown error.
func (api *activityApi) storeError(err error, msg string) error {
	if api.store == nil {
		return errors.Wrap(err, msg)
	}
	ctx, cancel := context.WithTimeout(context.Background(), storePingTimeout)
	defer cancel()
	if pingErr := api.store.Ping(ctx); pingErr != nil {
		return core.NewShutdownError(msg + ": store unreachable: " + pingErr.Error())
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *activityApi) query(ctx echo.Context) error {
	catalog, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return api.storeError(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, catalog)
}

func (api *activityApi) retrieve(ctx echo.Context) error {
	act, err := api.svc.Get(ctx.Request().Context(), pathName(ctx))
	if err != nil {
		if errors.Cause(err) == activity.ErrNotFound {
			return errActivityNotFound
		}
		return api.storeError(err, "getting activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *activityApi) signup(ctx echo.Context) error {
	data := activity.Signup{
		Activity: pathName(ctx),
		Email:    ctx.QueryParam("email"),
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reg, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err) {
		case activity.ErrNotFound:
			return errActivityNotFound
		case activity.ErrAlreadySignedUp:
			return errAlreadySignedUp
		}
		return api.storeError(err, "signing up")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Signed up " + reg.Email + " for " + reg.Activity})
}
