// seed_routes.go — standalone script to parse a matches CSV and feed the
// pairs through the routing API in batches.
//
// Usage:
//
//	go run scripts/seed_routes.go -matches /path/to/matches.csv -api http://localhost:8700
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

type pair struct {
	RequirementID string `json:"requirement_id"`
	VendorID      string `json:"vendor_id"`
}

type routeRequest struct {
	Pairs []pair `json:"pairs"`
}

type routeResponse struct {
	Created int `json:"created"`
}

func main() {
	matchesPath := flag.String("matches", "matches.csv", "path to matches CSV (requirement_id,vendor_id)")
	apiURL := flag.String("api", "http://localhost:8700", "routing API base URL")
	batchSize := flag.Int("batch", 50, "pairs per routing request")
	dryRun := flag.Bool("dry-run", false, "print pairs without posting")
	flag.Parse()

	f, err := os.Open(*matchesPath)
	if err != nil {
		log.Fatalf("open matches: %v", err)
	}
	defer f.Close()

	var pairs []pair
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Allow a header row
		if lineNo == 1 && strings.Contains(strings.ToLower(line), "requirement_id") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			log.Printf("line %d: expected requirement_id,vendor_id — skipping", lineNo)
			continue
		}
		p := pair{
			RequirementID: strings.TrimSpace(parts[0]),
			VendorID:      strings.TrimSpace(parts[1]),
		}
		if p.RequirementID == "" || p.VendorID == "" {
			log.Printf("line %d: empty id — skipping", lineNo)
			continue
		}
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("scan matches: %v", err)
	}

	log.Printf("parsed %d pairs from %s", len(pairs), *matchesPath)

	if *dryRun {
		for i, p := range pairs {
			fmt.Printf("[%d] %s -> %s\n", i+1, p.RequirementID, p.VendorID)
		}
		return
	}

	client := &http.Client{}
	created, failed := 0, 0
	for start := 0; start < len(pairs); start += *batchSize {
		end := start + *batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]

		body, _ := json.Marshal(routeRequest{Pairs: batch})
		req, err := http.NewRequest("POST", *apiURL+"/api/v1/route", bytes.NewReader(body))
		if err != nil {
			log.Printf("batch %d-%d: %v", start+1, end, err)
			failed += len(batch)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("batch %d-%d: %v", start+1, end, err)
			failed += len(batch)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("batch %d-%d: status %d", start+1, end, resp.StatusCode)
			failed += len(batch)
			resp.Body.Close()
			continue
		}

		var rr routeResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err == nil {
			created += rr.Created
		}
		resp.Body.Close()
	}

	log.Printf("done: %d assignments created, %d pairs failed", created, failed)
}
