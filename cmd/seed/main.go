// Command seed loads the demo dataset and optional generated readers.
package main

import (
	"context"
	"flag"
	"log"

	"worldnews/internal/cache"
	"worldnews/internal/config"
	"worldnews/internal/database"
	"worldnews/internal/repository"
	"worldnews/internal/seed"
)

func main() {
	numReaders := flag.Int("readers", 20, "Number of generated reader accounts")
	likeRate := flag.Float64("like-rate", 0.3, "Chance that a reader likes a given post")
	randSeed := flag.Int64("seed", 0, "Seed for generated content (0 = random)")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: demo dataset + %d readers, like-rate=%.2f, clean=%v\n", *numReaders, *likeRate, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	rdb := cache.Connect(cfg.RedisURL)

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
		cache.InvalidateFeeds(ctx, rdb)
	}

	if _, err := s.Demo(ctx); err != nil {
		log.Fatalf("❌ Demo seeding failed: %v", err)
	}

	if *numReaders > 0 {
		f := seed.NewFactory(db, repository.NewPostRepository(db, rdb), seed.FactoryOptions{
			Seed:     *randSeed,
			LikeRate: *likeRate,
		})
		readers, likes, err := f.Readers(ctx, *numReaders)
		if err != nil {
			log.Fatalf("❌ Reader seeding failed: %v", err)
		}
		log.Printf("👥 %d readers created, %d likes recorded", len(readers), likes)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Println("📧 Demo logins: kevin@gmail.com / kevin123 (admin), sarah@gmail.com / sarah123")
	log.Println("📧 Generated readers have the password: password123")
}
