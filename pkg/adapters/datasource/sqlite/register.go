package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/adapters/datasource"
	"github.com/querylens/querylens-engine/pkg/models"
)

func init() {
	datasource.Register(datasource.DriverRegistration{
		Info: datasource.DriverInfo{
			Engine:      models.EngineSQLite,
			DisplayName: "SQLite",
			Description: "Connect to a local SQLite database file",
		},
		Factory: func(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (datasource.Driver, error) {
			return NewDriver(ctx, desc, logger)
		},
	})
}
