package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/ozgesheedu/ozgeshe/apps/api/echo"
	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/catalog"
	"github.com/ozgesheedu/ozgeshe/core/commerce"
	"github.com/ozgesheedu/ozgeshe/core/enrollment"
	"github.com/ozgesheedu/ozgeshe/core/schedule"
	"github.com/ozgesheedu/ozgeshe/core/user"
	emailsvc "github.com/ozgesheedu/ozgeshe/services/email"
	logsvc "github.com/ozgesheedu/ozgeshe/services/logger"
	"github.com/ozgesheedu/ozgeshe/storage/database"
	sqlxrepos "github.com/ozgesheedu/ozgeshe/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) (*logsvc.RollbarLogger, core.Logger) {
	std, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(std.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger, logger
}

func newDBLogger(conf *core.Config) core.Logger {
	std, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up db logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(std.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       *user.Service
	CatalogSvc    *catalog.Service
	EnrollmentSvc *enrollment.Service
	ScheduleSvc   *schedule.Service
	CommerceSvc   *commerce.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CatalogSvc:    p.CatalogSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		ScheduleSvc:   p.ScheduleSvc,
		CommerceSvc:   p.CommerceSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCatalogRepository))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository))
	must(c.Provide(sqlxrepos.NewScheduleRepository))
	must(c.Provide(sqlxrepos.NewCommerceRepository))

	// the catalog and user repositories also serve the other services' lookups
	must(c.Provide(func(repo catalog.Repository) enrollment.Catalog { return repo }))
	must(c.Provide(func(repo catalog.Repository) schedule.Catalog { return repo }))
	must(c.Provide(func(repo user.Repository) schedule.Users { return repo }))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(catalog.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(schedule.NewService))
	must(c.Provide(commerce.NewService))

	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
