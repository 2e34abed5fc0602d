package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/storage/mongodb"
	"github.com/Hchautard/CerisoNet-back/internal/storage/postgres"
)

var opts = struct {
	Seed               string `long:"seed" env:"SEED" default:"seed.json" description:"path to seed file"`
	Postgres           string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMigrations string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`
	Mongo              string `long:"mongo" env:"MONGO" default:"mongodb://localhost:27017" description:"mongo uri"`
	MongoDatabase      string `long:"mongo.database" env:"MONGO_DATABASE" default:"cerisonet" description:"mongo database name"`
}{}

type seed struct {
	Accounts []struct {
		Mail      string `json:"mail"`
		Password  string `json:"password"`
		FirstName string `json:"prenom"`
		LastName  string `json:"nom"`
		Avatar    string `json:"avatar"`
	} `json:"accounts"`
	Posts []struct {
		Body      string   `json:"body"`
		CreatedBy int64    `json:"createdBy"`
		Hashtags  []string `json:"hashtags"`
		Images    []string `json:"images"`
	} `json:"posts"`
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "seed"
	parser.LongDescription = "Development data importer"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	logrus.Info("seed started")
	logrus.Infof("%+v", opts)

	b, err := os.ReadFile(opts.Seed)
	if err != nil {
		logrus.WithError(err).Fatal("failed to read seed file")
	}

	var data seed

	if err := json.Unmarshal(b, &data); err != nil {
		logrus.WithError(err).Fatal("failed to unmarshal seed file")
	}

	ctx := context.Background()

	accounts := postgres.New(mustGetDB())
	posts := mongodb.New(mustGetMongo(ctx).Database(opts.MongoDatabase))

	logrus.Info("import accounts")
	for i, v := range data.Accounts {
		digest, err := bcrypt.GenerateFromPassword([]byte(v.Password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Fatal("failed to hash password")
		}

		id, err := accounts.CreateAccount(ctx, &entities.Account{
			Mail:      v.Mail,
			Password:  string(digest),
			FirstName: v.FirstName,
			LastName:  v.LastName,
			Avatar:    v.Avatar,
		})
		if err != nil {
			logrus.WithError(err).Fatal("failed to put account into db")
		}

		logrus.Infof("%d of %d accounts imported, id=%d", i+1, len(data.Accounts), id)
	}

	logrus.Info("import posts")
	now := time.Now()
	for i, v := range data.Posts {
		if _, err := posts.CreatePost(ctx, &entities.Post{
			Body:      v.Body,
			CreatedBy: v.CreatedBy,
			Date:      now.Format("2006-01-02"),
			Hour:      now.Format("15:04:05"),
			Hashtags:  v.Hashtags,
			Images:    v.Images,
		}); err != nil {
			logrus.WithError(err).Fatal("failed to put post into db")
		}

		logrus.Infof("%d of %d posts imported", i+1, len(data.Posts))
	}

	logrus.Info("done")
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}

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

func mustGetMongo(ctx context.Context) *mongo.Client {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.Mongo))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create mongo connection")
	}

	return client
}
