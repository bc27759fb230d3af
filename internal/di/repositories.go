package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fiis/internal/clientdata"
	"github.com/aristath/fiis/internal/modules/ledger"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	container.LedgerRepo = ledger.NewRepository(log)
	container.PageCacheRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}
