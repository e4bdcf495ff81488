// Command bridge runs the ClickHouse-facing JDBC bridge: it serves the
// HTTP routes and keeps the data source / named query registries in sync
// with the on-disk configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"chbridge/internal/config"
	"chbridge/internal/datasource"
	"chbridge/internal/httpserver"
	"chbridge/internal/logger"
	"chbridge/internal/registry"
)

// CLI is the flag struct parsed with go-flags.
type CLI struct {
	Home     string `long:"home" description:"base directory holding config/ (server.json, datasources/, queries/)" default:""`
	Port     int    `short:"p" long:"port" description:"override server.json's serverPort" default:"0"`
	LogLevel string `long:"log-level" description:"error|warn|info|debug|trace" default:"info"`
}

func parseCLI() CLI {
	cli := CLI{}
	parser := flags.NewNamedParser(os.Args[0], flags.Default)
	if _, err := parser.AddGroup("bridge flags", "HTTP bridge options", &cli); err != nil {
		panic(err)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		panic(err)
	}

	if cli.Home == "" {
		cli.Home = os.Getenv("DATASOURCE_BRIDGE_HOME")
	}
	return cli
}

func parseLogLevel(s string) logger.LogLevel {
	switch s {
	case "error":
		return logger.LevelError
	case "warn":
		return logger.LevelWarn
	case "debug":
		return logger.LevelDebug
	case "trace":
		return logger.LevelTrace
	default:
		return logger.LevelInfo
	}
}

func main() {
	cli := parseCLI()
	log := logger.New(parseLogLevel(cli.LogLevel), true)

	serverCfg, err := config.LoadServerConfig(cli.Home)
	if err != nil {
		log.Error("config: %v", err)
		os.Exit(1)
	}
	if cli.Port > 0 {
		serverCfg.ServerPort = cli.Port
	}

	resolver := registry.NewResolver()
	dataSources := registry.NewDataSourceRegistry(resolver)
	namedQueries := registry.NewNamedQueryRegistry()

	registerSourceTypes(dataSources, log)

	scanPeriod := time.Duration(serverCfg.ConfigScanMs) * time.Millisecond
	dsWatcher := config.NewWatcher(cli.Home+"/config/datasources", scanPeriod, log)
	qWatcher := config.NewWatcher(cli.Home+"/config/queries", scanPeriod, log)

	if err := dataSources.Reload(dsWatcher.DataSources()); err != nil {
		log.Warn("datasources: initial reload: %v", err)
	}
	if err := namedQueries.Reload(qWatcher.NamedQueries()); err != nil {
		log.Warn("queries: initial reload: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go dsWatcher.Run(ctx, func(ds map[string]config.DataSourceConfig, _ map[string]config.NamedQueryConfig) {
		if err := dataSources.Reload(ds); err != nil {
			log.Warn("datasources: reload: %v", err)
		}
	})
	go qWatcher.Run(ctx, func(_ map[string]config.DataSourceConfig, nq map[string]config.NamedQueryConfig) {
		if err := namedQueries.Reload(nq); err != nil {
			log.Warn("queries: reload: %v", err)
		}
	})

	srv := httpserver.New(
		dataSources,
		namedQueries,
		time.Duration(serverCfg.RequestTimeoutMs)*time.Millisecond,
		time.Duration(serverCfg.QueryTimeoutMs)*time.Millisecond,
		cli.Home,
		log,
	)

	addr := fmt.Sprintf(":%d", serverCfg.ServerPort)
	log.Info("listening on %s", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		cancel()
		if err != nil {
			log.Error("server: %v", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info("received %s, shutting down", sig)
		cancel()
	}
}

// registerSourceTypes wires every pooled SQL backend this repo ships a
// driver for, plus ClickHouse itself as a pluggable "other" source: a
// ClickHouse backend is a legitimate federated/adhoc/debug source too.
func registerSourceTypes(reg *registry.DataSourceRegistry, log logger.Logger) {
	for _, typeName := range []string{"mysql", "postgres", "mssql", "sqlite", "clickhouse"} {
		reg.RegisterType(typeName, func(resolver *registry.Resolver, cfg config.DataSourceConfig) (registry.DataSource, error) {
			return datasource.NewSQLDataSource(resolver, cfg, log)
		})
	}
}
