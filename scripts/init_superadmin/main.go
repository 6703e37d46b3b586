package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/backoffice/internal/config"
	"github.com/backoffice/internal/db"
)

// Bootstraps the first superadmin account. Values missing from the flags
// are prompted for on stdin.
func main() {
	email := flag.String("email", "", "email for the superadmin")
	username := flag.String("username", "", "username for the superadmin")
	password := flag.String("password", "", "password for the superadmin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(reader, "Enter email: ")
	}
	if *username == "" {
		*username = prompt(reader, "Enter username: ")
	}
	if *password == "" {
		*password = prompt(reader, "Enter password: ")
	}

	if *email == "" || *username == "" || *password == "" {
		log.Fatal("email, username and password must not be empty")
	}

	var count int64
	if err := db.DB.Model(&db.User{}).Where("email = ?", *email).Count(&count).Error; err != nil {
		log.Fatalf("failed to check existing users: %v", err)
	}
	if count > 0 {
		fmt.Printf("User with email %s already exists.\n", *email)
		return
	}

	if err := db.DB.Model(&db.User{}).Where("username = ?", *username).Count(&count).Error; err != nil {
		log.Fatalf("failed to check existing users: %v", err)
	}
	if count > 0 {
		fmt.Printf("User with username %s already exists.\n", *username)
		return
	}

	if err := db.EnsureSuperadmin(*email, *username, *password); err != nil {
		log.Fatalf("failed to create superadmin: %v", err)
	}

	fmt.Println("Successfully created superadmin user:")
	fmt.Printf("Email: %s\n", *email)
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Role: %s\n", db.RoleSuperadmin)
}

// prompt asks until a non-empty value is entered or input runs out.
func prompt(reader *bufio.Reader, label string) string {
	for {
		fmt.Print(label)
		line, err := reader.ReadString('\n')
		value := strings.TrimSpace(line)
		if value != "" {
			return value
		}
		if err != nil {
			return ""
		}
		fmt.Println("Value must not be empty.")
	}
}
