// Command seed populates a development database with a demo account and a
// ready-to-play game, printing the ids and URLs needed to connect. Useful
// for manual playtesting without clicking through registration.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/namethat/namethat/db"
	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/store"
	"github.com/namethat/namethat/user"
)

var (
	dbPath   = flag.String("db", "namethat.db", "Path to the sqlite database file")
	email    = flag.String("email", "demo@example.com", "Email of the seeded account")
	password = flag.String("password", "demo-password", "Password of the seeded account")
	baseURL  = flag.String("base-url", "http://localhost:8080", "Server base URL used in the printed links")
)

var demoImages = []string{
	"https://upload.wikimedia.org/wikipedia/commons/3/3a/Cat03.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/b/b9/Pizigani_1367_Chart_10MB.jpg",
	"https://upload.wikimedia.org/wikipedia/commons/d/dd/Muybridge_race_horse_animated.gif",
}

func main() {
	flag.Parse()
	ctx := context.Background()

	conn, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database %s: %v", *dbPath, err)
	}
	defer conn.Close()
	if err := db.CreateSchema(conn); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	users := user.NewStore(conn)
	demo, err := users.Create(ctx, *email, "Demo Host", *password)
	if err != nil {
		// Re-running against the same database is fine: reuse the account.
		demo, err = users.Authenticate(ctx, *email, *password)
		if err != nil {
			log.Fatalf("Failed to create or reuse demo account: %v", err)
		}
	}

	games := store.New(conn)
	game, err := games.Insert(ctx, model.NewGame{
		UserID:    demo.ID,
		Name:      "Demo Game Night",
		ImageURLs: demoImages,
	})
	if err != nil {
		log.Fatalf("Failed to create demo game: %v", err)
	}

	fmt.Printf("Seeded demo data into %s\n\n", *dbPath)
	fmt.Printf("  Account:  %s / %s\n", *email, *password)
	fmt.Printf("  User id:  %s\n", demo.ID)
	fmt.Printf("  Game id:  %s\n", game.ID)
	fmt.Printf("  Game:     %s/api/games/%s\n", *baseURL, game.ID)
	fmt.Printf("  Join:     %s/ws/%s\n", *baseURL, game.ID)
}
