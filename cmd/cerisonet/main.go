package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/Hchautard/CerisoNet-back/internal/bridge"
	"github.com/Hchautard/CerisoNet-back/internal/server"
	"github.com/Hchautard/CerisoNet-back/internal/service/impl"
	"github.com/Hchautard/CerisoNet-back/internal/session"
	"github.com/Hchautard/CerisoNet-back/internal/storage/mongodb"
	"github.com/Hchautard/CerisoNet-back/internal/storage/postgres"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host string `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port int    `long:"http.port" env:"HTTP_PORT" default:"3000" description:"port to listen on"`

	Postgres                   string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMaxOpenConnections int    `long:"postgres.max_open_connections" env:"POSTGRES_MAX_OPEN_CONNECTIONS" default:"0" description:"postgres maximal open connections count, 0 means unlimited"`
	PostgresMaxIdleConnections int    `long:"postgres.max_idle_connections" env:"POSTGRES_MAX_IDLE_CONNECTIONS" default:"5" description:"postgres maximal idle connections count"`
	PostgresMigrations         string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`

	Mongo         string        `long:"mongo" env:"MONGO" default:"mongodb://localhost:27017" description:"mongo uri"`
	MongoDatabase string        `long:"mongo.database" env:"MONGO_DATABASE" default:"cerisonet" description:"mongo database name"`
	MongoTimeout  time.Duration `long:"mongo.timeout" env:"MONGO_TIMEOUT" default:"10s" description:"timeout for connecting to mongo"`

	Redis string `long:"redis" env:"REDIS" default:"redis://localhost:6379" description:"redis uri for sessions"`

	SessionCookie string        `long:"session.cookie" env:"SESSION_COOKIE" default:"cerisonet.sid" description:"session cookie name"`
	SessionTTL    time.Duration `long:"session.ttl" env:"SESSION_TTL" default:"168h" description:"session retention window"`

	LogLevel string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "CerisoNet"
	parser.LongDescription = "CerisoNet social network backend"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	logrus.Info("service started")
	logrus.Infof("%+v", opts)

	db := mustGetDB()

	mongoClient := mustGetMongo()
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logrus.WithError(err).Error("failed to disconnect mongo")
		}
	}()

	redisClient := mustGetRedis()
	defer func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Error("failed to close redis")
		}
	}()

	accounts := postgres.New(db)
	posts := mongodb.New(mongoClient.Database(opts.MongoDatabase))

	svc := impl.New(accounts, posts)
	sessions := session.New(redisClient, opts.SessionTTL)
	brd := bridge.New(svc)

	r := chi.NewMux()
	server.SetupRouter(svc, sessions, server.Config{
		CookieName: opts.SessionCookie,
		CookieTTL:  opts.SessionTTL,
	}, r, accounts, posts)
	r.Get("/ws", brd.Handler)

	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(context.Background())

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(srv.ListenAndServe)
	gr.Go(func() error {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		s := <-sigs

		logrus.Infof("terminating by %s signal", s)

		cancel()

		return errTerminated
	})

	logrus.Infof("listening on %s", srv.Addr)

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("service unexpectedly closed")
	}
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}
	db.SetMaxOpenConns(opts.PostgresMaxOpenConnections)
	db.SetMaxIdleConns(opts.PostgresMaxIdleConnections)

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", opts.PostgresMigrations), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	switch v, d, err := migrator.Version(); err {
	case nil:
		logrus.Infof("database version %d with dirty state %t", v, d)
	case migrate.ErrNilVersion:
		logrus.Info("database version: nil")
	default:
		logrus.WithError(err).Fatal("failed to get version")
	}

	switch err := migrator.Up(); err {
	case nil:
		logrus.Info("database was migrated")
	case migrate.ErrNoChange:
		logrus.Info("database is up-to-date")
	default:
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}

func mustGetMongo() *mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), opts.MongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.Mongo))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create mongo connection")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logrus.WithError(err).Fatal("failed to ping mongo")
	}

	return client
}

func mustGetRedis() *redis.Client {
	redisOpts, err := redis.ParseURL(opts.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("failed to parse redis uri")
	}

	client := redis.NewClient(redisOpts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Fatal("failed to ping redis")
	}

	return client
}
