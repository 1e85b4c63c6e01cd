package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc, validate: deps.Validate}
	teacher := teacherMiddleware()

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, teacher)
	sg.PUT("/:id", api.updateSubject, teacher)
	sg.DELETE("/:id", api.destroySubject, teacher)

	lg := g.Group("/labs", jwt)
	lg.GET("", api.queryLabs)
	lg.POST("", api.createLab, teacher)
	lg.PUT("/:id", api.updateLab, teacher)
	lg.DELETE("/:id", api.destroyLab, teacher)
}

func (api *courseApi) querySubjects(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *courseApi) createSubject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data course.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *courseApi) updateSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var data course.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.UpdateSubject(ctx.Request().Context(), sub, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *courseApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryLabs(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	labs, err := api.svc.QueryLabs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying labs")
	}
	return ctx.JSON(http.StatusOK, labs)
}

func (api *courseApi) createLab(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data course.NewLab
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLab")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lab, err := api.svc.CreateLab(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating lab")
	}
	return ctx.JSON(http.StatusCreated, lab)
}

func (api *courseApi) updateLab(ctx echo.Context) error {
	lab, err := api.svc.GetLab(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	var data course.NewLab
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLab")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lab, err = api.svc.UpdateLab(ctx.Request().Context(), lab, data)
	if err != nil {
		return errors.Wrap(err, "updating lab")
	}
	return ctx.JSON(http.StatusOK, lab)
}

func (api *courseApi) destroyLab(ctx echo.Context) error {
	if err := api.svc.DeleteLab(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lab")
	}
	return ctx.NoContent(http.StatusNoContent)
}
