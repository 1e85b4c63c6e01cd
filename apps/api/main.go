package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/campusrecords/campus/apps/api/echo"
	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/class"
	"github.com/campusrecords/campus/core/course"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/transcript"
	"github.com/campusrecords/campus/core/user"
	captchasvc "github.com/campusrecords/campus/services/captcha"
	emailsvc "github.com/campusrecords/campus/services/email"
	logsvc "github.com/campusrecords/campus/services/logger"
	metricsvc "github.com/campusrecords/campus/services/metrics"
	"github.com/campusrecords/campus/storage/cache/boltcache"
	"github.com/campusrecords/campus/storage/database"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
	"github.com/campusrecords/campus/storage/database/sqlxrepos"
)

type repositories struct {
	users   user.Repository
	courses course.Repository
	classes class.Repository
	marks   mark.Repository
	results result.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Flush()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	repos, closeDB, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	var artifactCache transcript.Cache
	if conf.Export.CachePath != "" {
		bc, err := boltcache.Open(conf.Export.CachePath)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening transcript cache: %v", err), err)
		}
		defer func() { _ = bc.Close() }()
		artifactCache = bc
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, false /* strict */)

	user.LoadCommonPasswords(logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var captcha core.CaptchaVerifier
	switch {
	case conf.Captcha.Enabled:
		captcha = captchasvc.NewHCaptcha(conf.Captcha)
	case conf.Debug || conf.TestMode:
		captcha = captchasvc.Dummy{}
	}

	metrics := metricsvc.New(prometheus.DefaultRegisterer)

	exporter, err := transcript.NewExporter(
		transcript.Options{
			AppName:    conf.AppName,
			Scale:      conf.Export.Scale,
			PageWidth:  conf.Export.PageWidth,
			PageHeight: conf.Export.PageHeight,
		},
		artifactCache,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up transcript exporter: %v", err), err)
	}

	markSvc := mark.NewService(repos.marks, conf.Worker.BatchLimit, metrics)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			MailSvc:    mailSvc,
			UserSvc:    user.NewService(repos.users, mailSvc, captcha, conf),
			CourseSvc:  course.NewService(repos.courses),
			ClassSvc:   class.NewService(repos.classes, repos.users, conf.Worker.BatchLimit),
			MarkSvc:    markSvc,
			ResultSvc:  result.NewService(markSvc, repos.results),
			Exporter:   exporter,
			Observer:   metrics,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage uses PostgreSQL, or the in-memory store in TEST mode.
func setUpStorage(conf *core.Config) (repositories, func() error, error) {
	if conf.TestMode {
		db := inmemdb.Open()
		return repositories{
			users:   inmemdb.NewUserRepository(db),
			courses: inmemdb.NewCourseRepository(db),
			classes: inmemdb.NewClassRepository(db),
			marks:   inmemdb.NewMarkRepository(db),
			results: inmemdb.NewResultRepository(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:   sqlxrepos.NewUserRepository(db),
		courses: sqlxrepos.NewCourseRepository(db),
		classes: sqlxrepos.NewClassRepository(db),
		marks:   sqlxrepos.NewMarkRepository(db),
		results: sqlxrepos.NewResultRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
