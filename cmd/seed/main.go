// Command main populates the Verses database with demo users, poems and likes.
package main

import (
	"flag"
	"log"

	"verses/internal/config"
	"verses/internal/database"
	"verses/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	poemsPerUser := flag.Int("poems", defaults.PoemsPerUser, "Number of poems per user")
	fixturePath := flag.String("fixture", "", "Seed from a YAML fixture instead of random data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", defaults.RandSeed, "Random seed for generated data")
	flag.Parse()

	log.Println("Database Seeder")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := defaults
	opts.Users = *numUsers
	opts.PoemsPerUser = *poemsPerUser
	opts.RandSeed = *randSeed

	s, err := seed.NewSeeder(db, opts)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var res seed.Result
	if *fixturePath != "" {
		fx, err := seed.LoadFixture(*fixturePath)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		res, err = s.ApplyFixture(fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		res, err = s.Random()
		if err != nil {
			log.Fatalf("Random seeding failed: %v", err)
		}
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}

	log.Printf("Seeded %d users, %d poems, %d likes", res.Users, res.Poems, res.Likes)
}
