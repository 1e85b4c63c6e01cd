package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core/mark"
)

type markApi struct {
	svc      *mark.Service
	validate *validator.Validate
}

func registerMarkAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := markApi{svc: deps.MarkSvc, validate: deps.Validate}
	teacher := teacherMiddleware()

	g.POST("/marks", api.submit, jwt, teacher)
	g.GET("/subjects/:id/marks", api.enteredMarks(mark.KindSubject), jwt, teacher)
	g.GET("/labs/:id/marks", api.enteredMarks(mark.KindLab), jwt, teacher)
	g.GET("/students/:id/marks", api.studentMarks, jwt, selfOrTeacherMiddleware("id"))
}

type (
	SubmissionResponse struct {
		Outcomes []mark.Outcome `json:"outcomes"`
		Summary  map[string]int `json:"summary"`
	}

	StudentMarksResponse struct {
		Subjects []mark.Record `json:"subjects"`
		Labs     []mark.Record `json:"labs"`
	}
)

// submit writes a whole marking session. 207 tells the client to retry the failed rows.
func (api *markApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data mark.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	outcomes, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting marks")
	}

	code := http.StatusOK
	for _, o := range outcomes {
		if o.Failed() {
			code = http.StatusMultiStatus
			break
		}
	}
	return ctx.JSON(code, SubmissionResponse{Outcomes: outcomes, Summary: mark.Summarize(outcomes)})
}

func (api *markApi) enteredMarks(kind mark.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		semester, err := semesterParam(ctx, "semester", false)
		if err != nil {
			return err
		}
		records, err := api.svc.EnteredMarks(ctx.Request().Context(), kind, ctx.Param("id"), semester)
		if err != nil {
			return errors.Wrapf(err, "querying %s marks", kind)
		}
		return ctx.JSON(http.StatusOK, records)
	}
}

func (api *markApi) studentMarks(ctx echo.Context) error {
	semester, err := semesterParam(ctx, "semester", false)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	subjects, err := api.svc.StudentSubjectMarks(reqCtx, ctx.Param("id"), semester)
	if err != nil {
		return errors.Wrap(err, "querying subject marks")
	}
	labs, err := api.svc.StudentLabMarks(reqCtx, ctx.Param("id"), semester)
	if err != nil {
		return errors.Wrap(err, "querying lab marks")
	}
	return ctx.JSON(http.StatusOK, StudentMarksResponse{Subjects: subjects, Labs: labs})
}
