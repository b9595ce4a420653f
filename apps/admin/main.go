package main

import (
	"os"

	"github.com/ozgesheedu/ozgeshe/core"
	"github.com/ozgesheedu/ozgeshe/core/user"
	emailsvc "github.com/ozgesheedu/ozgeshe/services/email"
	logsvc "github.com/ozgesheedu/ozgeshe/services/logger"
	"github.com/ozgesheedu/ozgeshe/storage/database"
	sqlxrepos "github.com/ozgesheedu/ozgeshe/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	std, err := logsvc.NewZap(conf)
	if err != nil {
		panic(err)
	}
	rollbarLogger := logsvc.NewRollbarLogger(std.Named("admin"), conf)
	rollbarLogger.Enable(!conf.Debug)
	logger = rollbarLogger

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	rollbarLogger.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
