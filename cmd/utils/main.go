package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"

	"github.com/appetiteclub/orderboard/cmd/utils/internal/commands"
)

const (
	appName    = "orderboard-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	config, err := apt.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel := config.GetStringOrDef("log.level", "info")
	logger := apt.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]
	client := apt.NewServiceClient(config.GetStringOrDef("orders.url", "http://localhost:8085"))

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, client, config.GetBoolOrFalse("force"), logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo seeding completed successfully")

	case "views":
		if err := commands.Views(ctx, client, config.GetStringOrDef("postazione", ""), os.Stdout); err != nil {
			log.Fatalf("Cannot read views: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - orderboard utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo    Place demo orders across every board tab (--force to seed a non-empty board)
  views        Print in-flight order counts per tab (--postazione=BAR to filter)
  version      Print version information
  help         Show this help message

Environment Variables:
  UTILS_ORDERS_URL  Orders service base URL (default: http://localhost:8085)
  UTILS_LOG_LEVEL   Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  %s views --postazione=CUCINA
  UTILS_ORDERS_URL=http://orders:8085 %s views

`, appName, appName, appName, appName, appName)
}
