package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
)

// Prints the bcrypt hash to put in EDGE_API_KEY_HASH for the storefront edge key.
func main() {
	apiKeyFlag := flag.String("api-key", "", "Key the storefront edge presents as a Bearer token")
	flag.Parse()

	apiKey := *apiKeyFlag
	if apiKey == "" && flag.NArg() >= 1 {
		apiKey = flag.Arg(0)
	}
	// Trim so the hash matches what the server receives (AuthMiddleware trims the Bearer token)
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/hash-edge-key/main.go --api-key \"your-edge-key\"")
		os.Exit(1)
	}

	hash, err := middleware.HashAPIKey(apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}
	if !middleware.VerifyAPIKey(apiKey, hash) {
		fmt.Fprintf(os.Stderr, "Hash verification failed\n")
		os.Exit(1)
	}

	fmt.Println("✅ Edge API key hashed. Set it in the server environment:")
	fmt.Printf("EDGE_API_KEY_HASH=%s\n", hash)
}
