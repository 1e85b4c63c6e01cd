package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/campusrecords/campus/core"
	"github.com/campusrecords/campus/core/mark"
	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/user"
	emailsvc "github.com/campusrecords/campus/services/email"
	logsvc "github.com/campusrecords/campus/services/logger"
	"github.com/campusrecords/campus/storage/database"
	inmemdb "github.com/campusrecords/campus/storage/database/inmem"
	"github.com/campusrecords/campus/storage/database/sqlxrepos"
)

var logger *logsvc.RollbarLogger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Flush()

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	cli, closeDB := newCommandLine(conf, validate)
	defer closeDB()

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		closeDB()
		logger.Flush()
		os.Exit(1)
	}
}

// newCommandLine wires the services to PostgreSQL, or to the in-memory store in TEST mode.
func newCommandLine(conf *core.Config, validate *validator.Validate) (*commandLine, func()) {
	mailSvc := emailsvc.NewConsoleService(conf, logger)

	var (
		db       *sqlx.DB
		usrRepo  user.Repository
		markRepo mark.Repository
		resRepo  result.Repository
	)
	if conf.TestMode {
		mem := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(mem)
		markRepo = inmemdb.NewMarkRepository(mem)
		resRepo = inmemdb.NewResultRepository(mem)
	} else {
		var err error
		if db, err = database.Open(conf); err != nil {
			logger.Fatal("opening database: "+err.Error(), err)
		}
		if err = db.Ping(); err != nil {
			logger.Fatal("pinging database: "+err.Error(), err)
		}
		usrRepo = sqlxrepos.NewUserRepository(db)
		markRepo = sqlxrepos.NewMarkRepository(db)
		resRepo = sqlxrepos.NewResultRepository(db)
	}

	markSvc := mark.NewService(markRepo, conf.Worker.BatchLimit, nil)
	cli := &commandLine{
		db:        db,
		validate:  validate,
		usrSvc:    user.NewService(usrRepo, mailSvc, nil, conf),
		resultSvc: result.NewService(markSvc, resRepo),
		cachePath: conf.Export.CachePath,
	}
	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}
	return cli, closeDB
}
