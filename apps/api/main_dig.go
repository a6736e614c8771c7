package main

import (
	"log"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/storage"
)

func startWithDig() {
	c := dig_container.New()

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		dbLogger dig_container.DBLoggerParam,
		stores storage.Stores,
		server *echoapi.Server,
	) {
		defer func() {
			if err := stores.Close(); err != nil {
				dbLogger.Logger.Error("closing stores", err)
			}
		}()
		serve(conf, logger, server)
	})
	if err != nil {
		log.Fatal(err)
	}
}
