package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/opspulse/background-agents/src/config"
	"github.com/opspulse/background-agents/src/coordination"
	"github.com/opspulse/background-agents/src/data"
	"github.com/opspulse/background-agents/src/types"
)

var (
	hostFlag     = flag.String("host", "", "PostgreSQL host (default from env)")
	portFlag     = flag.String("port", "", "PostgreSQL port (default from env)")
	dbFlag       = flag.String("db", "", "Database name to provision (default from env)")
	userFlag     = flag.String("user", "", "PostgreSQL user (default from env)")
	passwordFlag = flag.String("password", "", "PostgreSQL password (default from env)")
	sslmodeFlag  = flag.String("sslmode", "", "PostgreSQL SSL mode (default from env)")
	resetFlag    = flag.Bool("reset", false, "Drop and recreate all tables")
	skipEnvFlag  = flag.Bool("skip-env", false, "Do not write the environment file")
	envFileFlag  = flag.String("env-file", ".env", "Where to write the environment file")
	yesFlag      = flag.Bool("yes", false, "Answer yes to every prompt")
)

var dbNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var setupDirs = []string{"logs", "data", "temp", "backups", "config"}

func main() {
	log.SetFlags(0)
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.PostgresHost = pick(*hostFlag, cfg.PostgresHost)
	cfg.PostgresPort = pick(*portFlag, cfg.PostgresPort)
	cfg.PostgresDatabase = pick(*dbFlag, cfg.PostgresDatabase)
	cfg.PostgresUser = pick(*userFlag, cfg.PostgresUser)
	cfg.PostgresPassword = pick(*passwordFlag, cfg.PostgresPassword)
	cfg.PostgresSSLMode = pick(*sslmodeFlag, cfg.PostgresSSLMode)

	if !dbNameRE.MatchString(cfg.PostgresDatabase) {
		log.Fatalf("invalid database name %q", cfg.PostgresDatabase)
	}
	if !confirm(fmt.Sprintf("Provision database %q on %s:%s?",
		cfg.PostgresDatabase, cfg.PostgresHost, cfg.PostgresPort)) {
		log.Fatal("aborted")
	}

	ctx := context.Background()

	ensureDatabase(cfg)

	db, err := data.ConnectPostgres(cfg.PostgresDSN(), cfg.PoolSize, cfg.MaxOverflow)
	if err != nil {
		log.Fatalf("connect %s: %v", cfg.PostgresDatabase, err)
	}
	defer func() { _ = data.Close(db) }()

	if *resetFlag {
		log.Printf("==> dropping existing tables")
		if err := data.DropAll(db); err != nil {
			log.Fatalf("drop tables: %v", err)
		}
	}

	log.Printf("==> migrating schema")
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	log.Printf("==> seeding system state")
	if err := coordination.NewInitializer(db).EnsureDefaults(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}

	if !*skipEnvFlag {
		writeEnvFile(cfg, *envFileFlag)
	}

	log.Printf("==> creating working directories")
	for _, dir := range setupDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	validate(ctx, db)
	log.Printf("")
	log.Printf("Setup complete. Start the supervisor with the launcher binary.")
}

func ensureDatabase(cfg config.Config) {
	maint, err := data.ConnectPostgres(cfg.MaintenanceDSN(), 1, 0)
	if err != nil {
		log.Fatalf("connect maintenance database: %v", err)
	}
	defer func() { _ = data.Close(maint) }()

	var count int64
	err = maint.Raw("SELECT count(*) FROM pg_database WHERE datname = ?",
		cfg.PostgresDatabase).Scan(&count).Error
	if err != nil {
		log.Fatalf("check database: %v", err)
	}
	if count > 0 {
		log.Printf("==> database %q already exists", cfg.PostgresDatabase)
		return
	}

	log.Printf("==> creating database %q", cfg.PostgresDatabase)
	if err := maint.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.PostgresDatabase)).Error; err != nil {
		log.Fatalf("create database: %v", err)
	}
}

func writeEnvFile(cfg config.Config, path string) {
	if _, err := os.Stat(path); err == nil {
		if !confirm(fmt.Sprintf("%s exists, overwrite?", path)) {
			log.Printf("==> keeping existing %s", path)
			return
		}
	}
	log.Printf("==> writing %s", path)
	if err := os.WriteFile(path, []byte(envFileContent(cfg)), 0o600); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}

func validate(ctx context.Context, db *gorm.DB) {
	log.Printf("==> validating")
	if err := data.HealthCheck(ctx, db); err != nil {
		log.Fatalf("health check: %v", err)
	}
	var tables int64
	err := db.Raw("SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tables).Error
	if err != nil {
		log.Fatalf("count tables: %v", err)
	}
	var seeded int64
	if err := db.WithContext(ctx).Model(&types.SystemState{}).Count(&seeded).Error; err != nil {
		log.Fatalf("count system state: %v", err)
	}
	log.Printf("    %d tables, %d state keys", tables, seeded)
}

func confirm(prompt string) bool {
	if *yesFlag {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
