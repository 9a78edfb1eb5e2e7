package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/services"
	"github.com/codescanai/codescan/migrations"
)

// keygen manages API keys from the command line. The raw key is printed
// once at creation and cannot be recovered afterwards.
func main() {
	var (
		name   = flag.String("name", "", "name for the new key (required unless -list or -revoke)")
		tier   = flag.String("tier", services.TierFree, "key tier: free, pro or enterprise")
		list   = flag.Bool("list", false, "list existing keys instead of creating one")
		revoke = flag.String("revoke", "", "revoke the key with this key id")
	)
	flag.Parse()

	if err := run(*name, *tier, *list, *revoke); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(name, tier string, list bool, revoke string) error {
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch tier {
	case services.TierFree, services.TierPro, services.TierEnterprise:
	default:
		return fmt.Errorf("unknown tier %q (want free, pro or enterprise)", tier)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := models.RunMigrations(url, migrations.FS); err != nil {
		return err
	}

	db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(url))
	if err != nil {
		return err
	}
	defer db.Close()

	keys := models.NewAPIKeyService(db)

	switch {
	case list:
		return listKeys(ctx, keys)
	case revoke != "":
		if err := keys.Revoke(ctx, revoke); err != nil {
			return err
		}
		fmt.Printf("revoked key %s\n", revoke)
		return nil
	case name == "":
		return fmt.Errorf("-name is required (or use -list / -revoke)")
	default:
		return createKey(ctx, keys, name, tier)
	}
}

func createKey(ctx context.Context, keys *models.APIKeyService, name, tier string) error {
	raw, key, err := keys.Create(ctx, name, tier)
	if err != nil {
		return err
	}

	fmt.Printf("created key %q (tier %s, %d req/min)\n", key.Name, key.Tier, services.TierLimit(key.Tier))
	fmt.Printf("key id:  %s\n", key.KeyID)
	fmt.Printf("api key: %s\n", raw)
	fmt.Println("store this key now, it is not shown again")
	return nil
}

func listKeys(ctx context.Context, keys *models.APIKeyService) error {
	all, err := keys.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no keys")
		return nil
	}

	fmt.Printf("%-14s %-24s %-12s %-20s %s\n", "KEY ID", "NAME", "TIER", "CREATED", "LAST USED")
	for _, key := range all {
		lastUsed := "never"
		if key.LastUsedAt != nil {
			lastUsed = key.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-14s %-24s %-12s %-20s %s\n",
			key.KeyID, key.Name, key.Tier, key.CreatedAt.Format(time.RFC3339), lastUsed)
	}
	return nil
}
