// Package main provides a minimal HTTP healthcheck binary for the policy
// search container image. It performs a GET request and exits with code 0
// on a 2xx response or code 1 otherwise.
//
// Usage: healthcheck [url]
//
// The URL defaults to POLICY_SEARCH_HEALTH_URL, then to
// http://localhost:8080/readyz.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://localhost:8080/readyz"

func main() {
	if err := check(targetURL(os.Args[1:]), 5*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
}

func targetURL(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if u := os.Getenv("POLICY_SEARCH_HEALTH_URL"); u != "" {
		return u
	}
	return defaultURL
}

func check(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
