package storage

import (
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

// Stores bundles the repositories and transaction runner of one datastore.
type Stores struct {
	Users  user.Repository
	School school.Repository
	Tx     core.TxRunner

	close func() error
}

func (s Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the datastore named by conf.Database.Engine: "postgres" (created and migrated when
// missing) or "inmem".
func Open(conf *core.Config) (Stores, error) {
	switch conf.Database.Engine {
	case "inmem":
		return OpenInMem(), nil
	case "postgres", "":
		if err := database.CreateIfNotExist(conf); err != nil {
			return Stores{}, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return Stores{}, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return Stores{}, errors.Wrap(err, "migrating database")
		}
		return Stores{
			Users:  sqlxrepos.NewUserRepository(db),
			School: sqlxrepos.NewSchoolRepository(db),
			Tx:     database.NewTxRunner(db),
			close:  db.Close,
		}, nil
	}
	return Stores{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// OpenInMem returns fresh in-memory stores.
func OpenInMem() Stores {
	db := inmemdb.Open()
	return Stores{
		Users:  inmemdb.NewUserRepository(db),
		School: inmemdb.NewSchoolRepository(db),
		Tx:     db,
	}
}
