// Command useradd creates a socialnet account straight in the database,
// optionally with an avatar image. It reads the same configuration as the
// server (environment, JSON file, -d for the DSN, -u/-p/-b/-e for S3).
//
//	useradd -username alice -email alice@example.com -avatar ./alice.png
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/socialnet/internal/admin"
	"github.com/dmitrijs2005/socialnet/internal/flagx"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {

	var opts admin.Options
	fs := flag.NewFlagSet("useradd", flag.ExitOnError)
	fs.StringVar(&opts.Username, "username", "", "username")
	fs.StringVar(&opts.Email, "email", "", "email")
	fs.StringVar(&opts.DisplayName, "name", "", "display name")
	fs.StringVar(&opts.AvatarPath, "avatar", "", "path to an avatar image")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-username", "-email", "-name", "-avatar"}))

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, false)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	hasher := services.BcryptHasher{Cost: bcrypt.DefaultCost}
	ua := &admin.UserAdd{
		Users:   services.NewUserService(db, rm, hasher, logger),
		Uploads: services.NewUploadService(db, rm, cfg, logger),
		In:      bufio.NewReader(os.Stdin),
		Out:     os.Stdout,
	}

	if _, err := ua.Run(ctx, opts); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}
