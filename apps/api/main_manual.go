package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	identitysvc "github.com/trezcool/shule/services/identity"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage"
)

func newLogger(prefix string, conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func startManual() {
	conf := core.NewConfig()
	logger := newLogger("API : ", conf)
	dbLogger := newLogger("DB : ", conf)

	stores, err := storage.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s stores: %v", conf.Database.Engine, err), err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			dbLogger.Error("closing stores", err)
		}
	}()

	var mailSvc core.EmailService = emailsvc.NewSendgridService(conf, logger)
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	}
	usrSvc := user.NewService(stores.Users, mailSvc, conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	var idp school.IdentityProvider = identitysvc.NewLocalProvider(usrSvc)
	if conf.Identity.Provider == "hosted" {
		idp = identitysvc.NewHostedProvider(conf)
	}

	serve(conf, logger, echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		SchoolSvcs: school.NewServices(stores.School, stores.Tx, idp, validate, translator, logger, conf),
		Validate:   validate,
		Translator: translator,
	}))
}
