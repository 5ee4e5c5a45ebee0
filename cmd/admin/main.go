// Admin CLI for moderation: suspend or clear users, inspect reports, and run
// an expiry sweep by hand.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: no .env file loaded")
	}
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	s := storage.NewService(db, nil) // no redis needed for the CLI

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "suspend":
		setSuspended(s, true)
	case "unsuspend":
		setSuspended(s, false)
	case "reports":
		listReports(s)
	case "sweep":
		sweep(s)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <suspend|unsuspend|reports|sweep> [args]")
	fmt.Println("  suspend <user_id>    suspend a user from matching")
	fmt.Println("  unsuspend <user_id>  clear the suspension flag")
	fmt.Println("  reports <user_id>    list reports filed against a user")
	fmt.Println("  sweep                end every session past its deadline")
	os.Exit(1)
}

func userIDArg() uint {
	if len(os.Args) != 3 {
		usage()
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil || id == 0 {
		fmt.Println("Invalid user id. Please provide a positive integer.")
		os.Exit(1)
	}
	return uint(id)
}

func setSuspended(s storage.Storage, suspended bool) {
	userID := userIDArg()
	if err := s.SetUserSuspended(userID, suspended); err != nil {
		log.Fatalf("failed to update user %d: %v", userID, err)
	}
	if suspended {
		fmt.Printf("User %d suspended from matching.\n", userID)
	} else {
		fmt.Printf("User %d cleared.\n", userID)
	}
}

func listReports(s storage.Storage) {
	userID := userIDArg()
	reports, err := s.ReportsAgainst(userID)
	if err != nil {
		log.Fatalf("failed to load reports: %v", err)
	}
	if len(reports) == 0 {
		fmt.Printf("No reports against user %d.\n", userID)
		return
	}
	for _, r := range reports {
		line := fmt.Sprintf("#%d  %s  reporter=%d  reason=%s",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.ReporterID, r.Reason)
		if r.SessionID != nil {
			line += fmt.Sprintf("  session=%d", *r.SessionID)
		}
		fmt.Println(line)
		if r.Description != nil && *r.Description != "" {
			fmt.Println("    " + *r.Description)
		}
	}
}

func sweep(s storage.Storage) {
	// Without redis the session-ended broadcasts are skipped; participants
	// discover the terminal state on their next match-status poll.
	lc := lifecycle.NewService(s)
	ended, err := lc.SweepExpired(time.Now())
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	fmt.Printf("Ended %d expired session(s).\n", ended)
}
