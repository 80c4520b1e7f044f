// Command seed provisions a team, its members, and a signed token for
// local development. The real deployment gets teams from the
// collaboration layer and tokens from the identity provider; this tool
// stands in for both.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"teamchat/auth"
	"teamchat/domain"
	"teamchat/internal"
	"teamchat/repositories"
)

func main() {
	teamID := flag.String("team", "", "Team id to create")
	name := flag.String("name", "", "Team name")
	admin := flag.String("admin", "", "Admin user id")
	members := flag.String("members", "", "Comma-separated member user ids")
	tokenFor := flag.String("token-for", "", "Issue a 24h token for this user id")
	tokenName := flag.String("token-name", "Dev User", "Display name inside the token")
	tokenEmail := flag.String("token-email", "dev@example.com", "Email inside the token")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	if *tokenFor != "" {
		authenticator := auth.NewTokenAuthenticator(config.JWTSecret, config.JWTIssuer)
		token, err := authenticator.GenerateToken(*tokenFor, *tokenName, *tokenEmail, 24*time.Hour)
		if err != nil {
			log.Fatalf("Token generation failed: %v", err)
		}
		fmt.Println(token)
	}

	if *teamID == "" {
		return
	}
	if *admin == "" {
		log.Fatal("-admin is required when creating a team")
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatalf("Database opening failed: %v", err)
	}
	defer db.Close()

	teams := repositories.NewTeamRepository(db, logger)
	now := time.Now().UTC()
	team := domain.Team{
		ID:        domain.TeamID(*teamID),
		Name:      *name,
		AdminID:   *admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := teams.CreateTeam(team); err != nil {
		log.Fatalf("Team creation failed: %v", err)
	}

	for _, userID := range strings.Split(*members, ",") {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if err := teams.AddMember(team.ID, userID, domain.RoleMember); err != nil {
			log.Fatalf("Adding member %s failed: %v", userID, err)
		}
	}

	logger.Info("Team seeded", "team", team.ID, "admin", *admin)
}
