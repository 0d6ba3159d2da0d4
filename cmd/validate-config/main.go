package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/config"
)

func main() {
	fmt.Println("Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("  .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	profile, err := clinical.LoadProfile(cfg.ClinicalProfile)
	if err != nil {
		fmt.Printf("Clinical profile is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - Clinic Timezone: %s\n", cfg.Location())
	fmt.Printf("  - Clinical Profile: %s (%d windows, %d rules)\n", orDefault(cfg.ClinicalProfile), profile.Windows.Len(), profile.Catalog.Len())
	for _, w := range profile.Windows.Windows() {
		fmt.Printf("      %s\n", w)
	}
	fmt.Printf("  - DB: %s@%s:%s/%s (sslmode=%s)\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name, cfg.DB.SSLMode)
	fmt.Printf("  - DB Password: %s\n", maskToken(cfg.DB.Password))
	fmt.Printf("  - Lock Backend: %s (ttl %s, wait %s)\n", cfg.Lock.Backend, cfg.Lock.TTL, cfg.Lock.Wait)
	if cfg.Lock.Backend == config.LockBackendRedis {
		fmt.Printf("  - Redis: %s db %d\n", cfg.Redis.Addr(), cfg.Redis.DB)
	}
	fmt.Printf("  - Log Level: %s\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.Output)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func orDefault(path string) string {
	if path == "" {
		return "<built-in>"
	}
	return path
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
