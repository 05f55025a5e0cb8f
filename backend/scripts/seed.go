// Seeds the database with the owner account and starter documents.
//
// Usage:
//
//	go run ./backend/scripts -password <owner password> [-phone +18073587137] [-reset]
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/pkg/config"
	"thoth/backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	password := flag.String("password", "", "Password for the owner account (required)")
	phone := flag.String("phone", "", "Owner phone number (defaults to OWNER_PHONE_NUMBER)")
	reset := flag.Bool("reset", false, "Delete the existing database before seeding")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	if *password == "" {
		log.Fatal("A password is required (use -password)")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if *phone == "" {
		*phone = cfg.OwnerPhoneNumber
	}
	phoneNumber, err := parsePhone(*phone)
	if err != nil {
		log.Fatal("Invalid owner phone number", zap.String("phone", *phone), zap.Error(err))
	}

	if *reset {
		for _, path := range []string{cfg.DatabasePath, cfg.DatabasePath + "-wal", cfg.DatabasePath + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Fatal("Failed to remove database file", zap.String("path", path), zap.Error(err))
			}
		}
		log.Info("Removed existing database", zap.String("path", cfg.DatabasePath))
	}

	// Open the store; migrations run here.
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	// Check if the owner already exists
	if existing, err := store.GetUserByUsername(constants.OwnerUsername); err == nil {
		log.Info("Owner account already exists, skipping creation (use -reset to start over)",
			zap.String("username", existing.Username),
			zap.Int64("user_id", existing.UserID),
		)
		os.Exit(0)
	}

	// Create the owner account
	log.Info("Creating owner account", zap.String("username", constants.OwnerUsername))
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password", zap.Error(err))
	}
	user, err := store.CreateUser(constants.OwnerUsername, string(hash), &phoneNumber)
	if err != nil {
		log.Fatal("Failed to create owner account", zap.Error(err))
	}

	// Materialize the memory documents and record who the owner is.
	backend := memory.NewDBBackend(store)
	longTerm := memory.Load(memory.TierLongTerm, user.UserID, backend)
	longTerm.Set("username", constants.OwnerUsername)
	longTerm.Set("phone_number", *phone)
	if err := longTerm.Save(); err != nil {
		log.Fatal("Failed to seed long-term memory", zap.Error(err))
	}
	shortTerm := memory.Load(memory.TierShortTerm, user.UserID, backend)
	if err := shortTerm.Save(); err != nil {
		log.Fatal("Failed to seed short-term memory", zap.Error(err))
	}
	log.Info("Memory documents ready",
		zap.String("long_term", constants.LongTermMemoryFilename),
		zap.String("short_term", constants.ShortTermMemoryFilename),
	)

	// A starter file so the file endpoints have something to show.
	welcome := []byte("Welcome to your assistant. Upload files here and ask about them from any channel.\n")
	if _, err := store.GetOrCreateFile(user.UserID, "welcome.txt", "text/plain", welcome); err != nil {
		log.Warn("Failed to create starter file", zap.Error(err))
	}

	log.Info("Owner account seeded successfully",
		zap.Int64("user_id", user.UserID),
		zap.String("username", user.Username),
		zap.Int64("phone_number", phoneNumber),
	)
	log.Info("Seed completed. The assistant is ready to use!")
}

// parsePhone strips formatting characters and returns the bare digits.
func parsePhone(phone string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return 0, fmt.Errorf("no digits in %q", phone)
	}
	return strconv.ParseInt(digits, 10, 64)
}
