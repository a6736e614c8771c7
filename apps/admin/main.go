package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	identitysvc "github.com/trezcool/shule/services/identity"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	usrRepo := sqlxrepos.NewUserRepository(db)
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleService(conf, logger), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		usrRepo:    usrRepo,
		schoolRepo: schoolRepo,
		svcs: school.NewServices(
			schoolRepo, database.NewTxRunner(db), identitysvc.NewLocalProvider(usrSvc),
			validate, translator, logger, conf,
		),
		migrate: func(command string, args ...string) error {
			return database.Migrate(db, command, args...)
		},
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
