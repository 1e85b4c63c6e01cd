package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core/class"
)

const contextClassKey = "class"

var errClassNotFoundInCtx = errors.New("class object not found in echo.Context")

type classApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{svc: deps.ClassSvc, validate: deps.Validate}
	teacher := teacherMiddleware()

	cg := g.Group("/classes", jwt)

	// class teacher endpoints.
	// the group must exist before the routes on its prefix, Group.Use adds catch-all routes.
	og := cg.Group("/:id", teacher, api.classTeacherMiddleware)
	og.GET("/students", api.roster)
	og.POST("/students", api.enroll)
	og.DELETE("/students/:studentId", api.unenroll)
	og.POST("/attendance", api.markAttendance)
	og.GET("/attendance", api.classAttendance)

	cg.GET("", api.query)
	cg.POST("", api.create, teacher)
	cg.DELETE("/:id", api.destroy, teacher)

	g.GET("/attendance", api.myAttendance, jwt)
}

// classTeacherMiddleware loads the class of the path and checks that the requester teaches it.
func (api *classApi) classTeacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		cls, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if cls.TeacherID != claims.Subject {
			return class.ErrNotClassTeacher
		}
		ctx.Set(contextClassKey, cls)
		return next(ctx)
	}
}

func contextClass(ctx echo.Context) (class.Class, error) {
	cls, ok := ctx.Get(contextClassKey).(class.Class)
	if !ok {
		return class.Class{}, errors.Wrap(errClassNotFoundInCtx, "retrieving object from context")
	}
	return cls, nil
}

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var classes []class.Class
	if claims.IsTeacher() {
		classes, err = api.svc.QueryForTeacher(ctx.Request().Context(), claims.Subject)
	} else {
		classes, err = api.svc.QueryForStudent(ctx.Request().Context(), claims.Subject)
	}
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data class.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) roster(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.Roster(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) enroll(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	var data class.Enrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enrollment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.Enroll(ctx.Request().Context(), cls, data.StudentID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, data)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unenroll(ctx.Request().Context(), cls, ctx.Param("studentId")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// markAttendance writes a whole attendance sheet. 207 tells the client to retry the failed entries.
func (api *classApi) markAttendance(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data class.AttendanceSheet
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceSheet")
	}
	if data.Date == "" {
		data.Date = class.Today()
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	outcomes, err := api.svc.MarkAttendance(ctx.Request().Context(), cls, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}

	code := http.StatusOK
	for _, o := range outcomes {
		if o.Status == class.OutcomeFailed {
			code = http.StatusMultiStatus
			break
		}
	}
	return ctx.JSON(code, outcomes)
}

func (api *classApi) classAttendance(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	var filter class.AttendanceFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AttendanceFilter")
	}

	atts, err := api.svc.ClassAttendance(ctx.Request().Context(), cls.ID, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *classApi) myAttendance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var filter class.AttendanceFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AttendanceFilter")
	}

	atts, err := api.svc.StudentAttendance(ctx.Request().Context(), claims.Subject, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, atts)
}
