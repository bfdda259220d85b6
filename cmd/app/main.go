package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	authservice "vtc-platform/internal/auth-service"
	"vtc-platform/internal/config"
	dispatchservice "vtc-platform/internal/dispatch-service"
	"vtc-platform/internal/mylogger"
	walletservice "vtc-platform/internal/wallet-service"
)

func main() {
	dispatchCmd := flag.NewFlagSet("dispatch-service", flag.ExitOnError)
	authCmd := flag.NewFlagSet("auth-service", flag.ExitOnError)
	walletCmd := flag.NewFlagSet("wallet-service", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println("usage: app <dispatch-service|auth-service|wallet-service>")
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "dispatch-service":
		_ = dispatchCmd.Parse(os.Args[2:])
		err = dispatchservice.Execute(ctx, mylog, cfg)
	case "auth-service":
		_ = authCmd.Parse(os.Args[2:])
		err = authservice.Execute(ctx, mylog, cfg)
	case "wallet-service":
		_ = walletCmd.Parse(os.Args[2:])
		err = walletservice.Execute(ctx, mylog, cfg)
	default:
		fmt.Printf("unknown service %q\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("service exited with error: %v", err)
	}
}
