package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/dbgate/pkg/config"
	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/driver/mongo"
	"github.com/dmitrymomot/dbgate/pkg/driver/neo4j"
	"github.com/dmitrymomot/dbgate/pkg/driver/opensearch"
	"github.com/dmitrymomot/dbgate/pkg/driver/orientdb"
	"github.com/dmitrymomot/dbgate/pkg/driver/postgres"
	"github.com/dmitrymomot/dbgate/pkg/driver/redis"
)

// newDriver builds the driver selected by DBGATE_DRIVER with its own env
// config.
func newDriver(name string) (driver.Driver, error) {
	switch name {
	case orientdb.Name:
		var cfg orientdb.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return orientdb.New(cfg), nil
	case neo4j.Name:
		var cfg neo4j.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return neo4j.New(cfg), nil
	case postgres.Name:
		var cfg postgres.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return postgres.New(cfg), nil
	case mongo.Name:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return mongo.New(cfg), nil
	case redis.Name:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return redis.New(cfg), nil
	case opensearch.Name:
		var cfg opensearch.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return opensearch.New(cfg), nil
	}
	return nil, fmt.Errorf("unknown driver %q, want one of %s", name, strings.Join(config.Drivers, ", "))
}

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List supported database drivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range config.Drivers {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}
