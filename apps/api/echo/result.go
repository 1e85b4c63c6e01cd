package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/transcript"
	"github.com/campusrecords/campus/core/user"
)

const headerTranscriptPages = "X-Transcript-Pages"

type resultApi struct {
	svc      *result.Service
	usrSvc   *user.Service
	exporter *transcript.Exporter
	mailSvc  core.EmailService
}

func registerResultAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := resultApi{
		svc:      deps.ResultSvc,
		usrSvc:   deps.UserSvc,
		exporter: deps.Exporter,
		mailSvc:  deps.MailSvc,
	}

	rg := g.Group("/results/:studentId", jwt, selfOrTeacherMiddleware("studentId"))
	rg.GET("", api.query)
	rg.GET("/:semester", api.compute)
	rg.GET("/:semester/transcript", api.downloadTranscript)
	rg.POST("/:semester/transcript/email", api.emailTranscript)
}

func (api *resultApi) query(ctx echo.Context) error {
	results, err := api.svc.Query(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) compute(ctx echo.Context) error {
	semester, err := semesterParam(ctx, "semester", true)
	if err != nil {
		return err
	}
	rep, err := api.svc.Compute(ctx.Request().Context(), ctx.Param("studentId"), semester)
	if err != nil {
		return errors.Wrap(err, "computing result")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// view loads the student and computes the semester result a transcript is rendered from.
func (api *resultApi) view(ctx echo.Context) (transcript.View, error) {
	semester, err := semesterParam(ctx, "semester", true)
	if err != nil {
		return transcript.View{}, err
	}
	reqCtx := ctx.Request().Context()

	student, err := api.usrSvc.GetByID(reqCtx, ctx.Param("studentId"))
	if err != nil {
		return transcript.View{}, err
	}
	if !student.IsStudent() {
		return transcript.View{}, user.ErrNotFound
	}

	rep, err := api.svc.Compute(reqCtx, student.ID, semester)
	if err != nil {
		return transcript.View{}, errors.Wrap(err, "computing result")
	}
	return transcript.NewView(student, rep), nil
}

func (api *resultApi) export(ctx echo.Context) (transcript.View, transcript.Artifact, error) {
	format, err := transcript.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return transcript.View{}, transcript.Artifact{}, err
	}
	view, err := api.view(ctx)
	if err != nil {
		return transcript.View{}, transcript.Artifact{}, err
	}
	art, err := api.exporter.Export(ctx.Request().Context(), view, format)
	if err != nil {
		return transcript.View{}, transcript.Artifact{}, errors.Wrap(err, "exporting transcript")
	}
	return view, art, nil
}

func (api *resultApi) downloadTranscript(ctx echo.Context) error {
	_, art, err := api.export(ctx)
	if err != nil {
		return err
	}

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.Filename))
	header.Set(headerTranscriptPages, strconv.Itoa(art.Pages))
	return ctx.Blob(http.StatusOK, art.ContentType, art.Data)
}

func (api *resultApi) emailTranscript(ctx echo.Context) error {
	view, art, err := api.export(ctx)
	if err != nil {
		return err
	}
	msg, err := transcript.NewEmailMessage(view, art)
	if err != nil {
		return err
	}

	api.mailSvc.SendMessages(msg)
	return ctx.JSON(http.StatusAccepted, SuccessResponse{
		Success: fmt.Sprintf("The transcript will be sent to %s shortly.", view.StudentEmail),
	})
}
