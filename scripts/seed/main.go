package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/auth"
	"github.com/healthcompanion/companion/internal/platform/migrate"
	"github.com/healthcompanion/companion/internal/shared"
)

type demoAccount struct {
	name     string
	email    string
	phone    string
	location string
	dob      string
	gender   accounts.Gender
}

var demoAccounts = []demoAccount{
	{"Demo Patient", "demo@healthcompanion.local", "+1 555 0100", "Springfield", "1988-04-12", accounts.GenderFemale},
	{"Test Clinician", "clinician@healthcompanion.local", "+1 555 0101", "Shelbyville", "1979-09-30", accounts.GenderMale},
}

func main() {
	dsn := getenv("PG_DSN", "postgres://postgres@localhost:5432/health_companion?sslmode=disable")
	password := getenv("SEED_PASSWORD", "Demo1234")
	if err := accounts.CheckPassword(password); err != nil {
		log.Fatalf("seed password: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := migrate.Up(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	fmt.Println("→ Seeding demo accounts...")
	created, err := seedAccounts(ctx, accounts.NewRepository(pool), auth.NewHasher(bcrypt.DefaultCost), password)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}
	fmt.Printf("✓ Seed complete at %s (%d new accounts)\n", time.Now().Format(time.RFC3339), created)
}

func seedAccounts(ctx context.Context, store accounts.Store, hasher *auth.Hasher, password string) (int, error) {
	created := 0
	for _, demo := range demoAccounts {
		hash, err := hasher.Hash(password)
		if err != nil {
			return created, err
		}
		dob, err := time.Parse(accounts.DateLayout, demo.dob)
		if err != nil {
			return created, err
		}
		err = store.Create(ctx, &accounts.Account{
			Name:         demo.name,
			Email:        demo.email,
			PasswordHash: hash,
			Phone:        demo.phone,
			Location:     demo.location,
			DateOfBirth:  dob,
			Gender:       demo.gender,
		})
		switch {
		case errors.Is(err, shared.ErrDuplicateEmail):
			fmt.Printf("  %s already exists\n", demo.email)
		case err != nil:
			return created, fmt.Errorf("%s: %w", demo.email, err)
		default:
			created++
			fmt.Printf("  %s created\n", demo.email)
		}
	}
	return created, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
