package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	identitysvc "github.com/trezcool/shule/services/identity"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func prefixedLogger(prefix string) func(*core.Config) core.Logger {
	return func(conf *core.Config) core.Logger {
		return logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	}
}

type storesResult struct {
	dig.Out
	Stores storage.Stores
	Users  user.Repository
	School school.Repository
	Tx     core.TxRunner
}

func newStores(conf *core.Config, loggerParam DBLoggerParam) storesResult {
	stores, err := storage.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return storesResult{Stores: stores, Users: stores.Users, School: stores.School, Tx: stores.Tx}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	return validate, translator
}

func newIdentityProvider(conf *core.Config, usrSvc user.Service) school.IdentityProvider {
	if conf.Identity.Provider == "hosted" {
		return identitysvc.NewHostedProvider(conf)
	}
	return identitysvc.NewLocalProvider(usrSvc)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc user.Service,
	schoolSvcs *school.Services,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		SchoolSvcs: schoolSvcs,
		Validate:   validate,
		Translator: translator,
	})
}

// New wires the API graph; invoke it with the *echoapi.Server and storage.Stores.
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(prefixedLogger("API : ")))
	must(c.Provide(prefixedLogger("DB : "), dig.Name("dbLogger")))
	must(c.Provide(newStores))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidation))
	must(c.Provide(user.NewService))
	must(c.Provide(newIdentityProvider))
	must(c.Provide(school.NewServices))
	must(c.Provide(newServer))

	return c
}

func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "providing dependency").Error())
	}
}
