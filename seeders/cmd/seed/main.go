package main

import (
	"log"

	"github.com/joho/godotenv"

	"ticketing-attachments/pkg/config"
	"ticketing-attachments/pkg/database/postgresql"
	"ticketing-attachments/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded.")
	}
	cfg := config.New()

	if err := postgresql.RunMigrations(cfg.Postgres.DSN); err != nil {
		log.Fatalf("❌ Ошибка применения миграций: %v", err)
	}

	db := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer db.Close()

	seeders.SeedAll(db)
}
