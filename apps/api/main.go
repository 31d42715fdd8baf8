package main

import (
	"log"
	"os"

	echoapi "github.com/smartsubmit/smartsubmit/apps/api/echo"
	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/roster"
	"github.com/smartsubmit/smartsubmit/core/user"
	emailsvc "github.com/smartsubmit/smartsubmit/services/email"
	"github.com/smartsubmit/smartsubmit/services/filestore"
	logsvc "github.com/smartsubmit/smartsubmit/services/logger"
	"github.com/smartsubmit/smartsubmit/storage/database"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(std, err)
	errAndDie(std, database.Migrate(db))
	store := database.NewStore(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, std)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	files, err := filestore.NewLocal(conf)
	errAndDie(std, err)

	usrSvc := user.NewService(store)
	tokens := user.NewTokenSource(conf)
	importer := roster.NewImporter(store, mailSvc)
	asgSvc := assignment.NewService(store, store, files)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		Tokens:        tokens,
		Importer:      importer,
		AssignmentSvc: asgSvc,
	})
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
